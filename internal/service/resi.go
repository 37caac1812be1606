package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/internal/invalidation"
	"github.com/goliatone/go-jastip/internal/listing"
	"github.com/goliatone/go-jastip/internal/pagination"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type CreateResiInput struct {
	UserID            int64                   `json:"user_id"`
	NoResi            string                  `json:"nomor_resi"`
	TanggalDiterima   time.Time               `json:"tanggal_diterima"`
	PosisiPaket       string                  `json:"posisi_paket"`
	EstimasiTiba      time.Time               `json:"estimasi_tiba"`
	StatusPaket       domain.StatusPaket      `json:"status_paket"`
	FeeJastip         decimal.Decimal         `json:"fee_jastip"`
	StatusCod         bool                    `json:"status_cod"`
	JumlahCod         decimal.Decimal         `json:"jumlah_cod"`
	FeeCod            decimal.Decimal         `json:"fee_cod"`
	StatusPembayaran  domain.StatusPembayaran `json:"status_pembayaran_cod"`
	MethodPembayaran  domain.MetodePembayaran `json:"method_pembayaran"`
	TanggalPembayaran *time.Time              `json:"tanggal_pembayaran"`
}

func (in CreateResiInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.UserID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.NoResi, validation.Required, validation.Length(3, 64)),
		validation.Field(&in.TanggalDiterima, validation.Required),
		validation.Field(&in.PosisiPaket, validation.Required),
		validation.Field(&in.EstimasiTiba, validation.Required),
		validation.Field(&in.StatusPaket, validation.In(domain.StatusDiproses, domain.StatusDiterima)),
		validation.Field(&in.FeeJastip, validation.By(nonNegative)),
		validation.Field(&in.JumlahCod, validation.By(nonNegative)),
		validation.Field(&in.FeeCod, validation.By(nonNegative)),
		validation.Field(&in.StatusPembayaran, validation.In(domain.BelumBayar, domain.SudahBayar)),
		validation.Field(&in.MethodPembayaran, validation.In(domain.MetodeCash, domain.MetodeQRIS, domain.MetodeTransfer)),
	)
}

// hasCod reports whether a COD record must be created. A zero amount means
// no COD even when the flag is set.
func (in CreateResiInput) hasCod() bool {
	return in.StatusCod && !in.JumlahCod.IsZero()
}

type UpdateResiInput struct {
	PosisiPaket       string                  `json:"posisi_paket"`
	EstimasiTiba      *time.Time              `json:"estimasi_tiba"`
	StatusPaket       domain.StatusPaket      `json:"status_paket"`
	StatusCod         *bool                   `json:"status_cod"`
	StatusPembayaran  domain.StatusPembayaran `json:"status_pembayaran_cod"`
	TanggalPembayaran *time.Time              `json:"tanggal_pembayaran"`
}

func (in UpdateResiInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.StatusPaket, validation.In(domain.StatusDiproses, domain.StatusDiterima)),
		validation.Field(&in.StatusPembayaran, validation.In(domain.BelumBayar, domain.SudahBayar)),
	)
}

type UpdatePosisiInput struct {
	NomorResi   []string `json:"nomor_resi"`
	PosisiPaket string   `json:"posisi_paket"`
}

func (in UpdatePosisiInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.NomorResi, validation.Required, validation.Each(validation.Required)),
		validation.Field(&in.PosisiPaket, validation.Required),
	)
}

func nonNegative(value any) error {
	if d, ok := value.(decimal.Decimal); ok && d.IsNegative() {
		return validation.NewError("validation_non_negative", "must not be negative")
	}
	return nil
}

// ResiService manages resi and their COD records. Single resi reads go
// through the cached repository, keyed by tracking number.
type ResiService struct {
	db      *bun.DB
	resi    repository.Repository[*domain.Resi]
	users   repository.Repository[*domain.User]
	listing *listing.Service[domain.Resi]
	policy  *invalidation.Policy
	logger  *slog.Logger
}

func NewResiService(
	db *bun.DB,
	resi repository.Repository[*domain.Resi],
	users repository.Repository[*domain.User],
	list *listing.Service[domain.Resi],
	policy *invalidation.Policy,
	logger *slog.Logger,
) *ResiService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResiService{
		db:      db,
		resi:    resi,
		users:   users,
		listing: list,
		policy:  policy,
		logger:  logger.With("service", "resi"),
	}
}

// Create stores a resi for an existing user, and its COD record when the
// resi carries a non zero COD amount, in one transaction.
func (s *ResiService) Create(ctx context.Context, in CreateResiInput) (ResiView, error) {
	if err := in.Validate(); err != nil {
		return ResiView{}, domain.InvalidInput(err)
	}
	noResi := domain.NormalizeNoResi(in.NoResi)

	userID := strconv.FormatInt(in.UserID, 10)
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "user not found", "user_id", in.UserID)
		return ResiView{}, domain.FromRepository(err, "user", userID)
	}

	resi := &domain.Resi{
		NoResi:          noResi,
		UserID:          user.ID,
		TanggalDiterima: in.TanggalDiterima.UTC(),
		PosisiPaket:     in.PosisiPaket,
		EstimasiTiba:    in.EstimasiTiba.UTC(),
		StatusPaket:     in.StatusPaket,
		StatusCod:       in.StatusCod,
		FeeJastip:       in.FeeJastip,
	}
	if resi.StatusPaket == "" {
		resi.StatusPaket = domain.StatusDiproses
	}

	var cod *domain.COD
	if in.hasCod() {
		cod = &domain.COD{
			JumlahCod:         in.JumlahCod,
			FeeCod:            in.FeeCod,
			StatusPembayaran:  in.StatusPembayaran,
			MethodPembayaran:  in.MethodPembayaran,
			TanggalPembayaran: in.TanggalPembayaran,
		}
		if cod.StatusPembayaran == "" {
			cod.StatusPembayaran = domain.BelumBayar
		}
		if cod.MethodPembayaran == "" {
			cod.MethodPembayaran = domain.MetodeCash
		}
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.resi.CreateTx(ctx, tx, resi); err != nil {
			return err
		}
		if cod == nil {
			return nil
		}
		cod.ResiID = resi.ID
		_, err := tx.NewInsert().Model(cod).Exec(ctx)
		return err
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to create resi", "no_resi", noResi, "error", err)
		return ResiView{}, domain.FromDB(s.db, err, "resi", noResi)
	}

	resi.User = user
	resi.Cod = cod
	s.policy.Apply(ctx, invalidation.Event{Mutation: invalidation.ResiCreated, ID: noResi, Record: resi})

	s.logger.InfoContext(ctx, "resi created", "no_resi", noResi, "cod", cod != nil)
	return NewResiView(resi), nil
}

// Get returns the resi with its owner and COD record.
func (s *ResiService) Get(ctx context.Context, noResi string) (ResiView, error) {
	resi, err := s.get(ctx, domain.NormalizeNoResi(noResi))
	if err != nil {
		return ResiView{}, err
	}
	return NewResiView(resi), nil
}

func (s *ResiService) get(ctx context.Context, noResi string) (*domain.Resi, error) {
	resi, err := s.resi.GetByIdentifier(ctx, noResi)
	if err != nil {
		return nil, domain.FromRepository(err, "resi", noResi)
	}
	return resi, nil
}

// Update changes the tracking fields of a resi and, when it has one, the
// payment state of its COD record.
func (s *ResiService) Update(ctx context.Context, noResi string, in UpdateResiInput) (ResiView, error) {
	if err := in.Validate(); err != nil {
		return ResiView{}, domain.InvalidInput(err)
	}
	noResi = domain.NormalizeNoResi(noResi)

	resi, err := s.load(ctx, noResi)
	if err != nil {
		return ResiView{}, err
	}

	columns := []string{"updated_at"}
	if in.PosisiPaket != "" {
		resi.PosisiPaket = in.PosisiPaket
		columns = append(columns, "posisi_paket")
	}
	if in.EstimasiTiba != nil {
		resi.EstimasiTiba = in.EstimasiTiba.UTC()
		columns = append(columns, "estimasi_tiba")
	}
	if in.StatusPaket != "" {
		resi.StatusPaket = in.StatusPaket
		columns = append(columns, "status_paket")
	}
	if in.StatusCod != nil {
		resi.StatusCod = *in.StatusCod
		columns = append(columns, "status_cod")
	}

	var codColumns []string
	if resi.Cod != nil {
		if in.StatusPembayaran != "" {
			resi.Cod.StatusPembayaran = in.StatusPembayaran
			codColumns = append(codColumns, "status_pembayaran")
		}
		if in.TanggalPembayaran != nil {
			paid := in.TanggalPembayaran.UTC()
			resi.Cod.TanggalPembayaran = &paid
			codColumns = append(codColumns, "tanggal_pembayaran")
		}
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().Model(resi).Column(columns...).WherePK().Exec(ctx); err != nil {
			return err
		}
		if len(codColumns) == 0 {
			return nil
		}
		_, err := tx.NewUpdate().Model(resi.Cod).Column(codColumns...).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update resi", "no_resi", noResi, "error", err)
		return ResiView{}, domain.FromDB(s.db, err, "resi", noResi)
	}

	s.policy.Apply(ctx, invalidation.Event{Mutation: invalidation.ResiUpdated, ID: noResi, Record: resi})
	return NewResiView(resi), nil
}

// Delete removes a resi and its COD record. A resi that belongs to a
// transaksi cannot be deleted.
func (s *ResiService) Delete(ctx context.Context, noResi string) (ResiView, error) {
	noResi = domain.NormalizeNoResi(noResi)

	resi, err := s.load(ctx, noResi)
	if err != nil {
		return ResiView{}, err
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*domain.COD)(nil)).Where("resi_id = ?", resi.ID).Exec(ctx); err != nil {
			return err
		}
		return s.resi.DeleteTx(ctx, tx, resi)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to delete resi", "no_resi", noResi, "error", err)
		return ResiView{}, domain.FromDB(s.db, err, "resi", noResi)
	}

	s.policy.Apply(ctx, invalidation.Event{Mutation: invalidation.ResiDeleted, ID: noResi})
	s.logger.InfoContext(ctx, "resi deleted", "no_resi", noResi)
	return NewResiView(resi), nil
}

// UpdatePosisi moves every listed resi to the same position. Unknown
// numbers fail the whole request.
func (s *ResiService) UpdatePosisi(ctx context.Context, in UpdatePosisiInput) (int, error) {
	if err := in.Validate(); err != nil {
		return 0, domain.InvalidInput(err)
	}
	numbers := unique(domain.NormalizeNoResiList(in.NomorResi))

	var updated int
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Table("resi").
			Set("posisi_paket = ?", in.PosisiPaket).
			Set("updated_at = ?", time.Now().UTC()).
			Where("no_resi IN (?)", bun.In(numbers)).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if int(n) != len(numbers) {
			return domain.Validation("some resi numbers are invalid or not found",
				errors.FieldError{Field: "nomor_resi", Message: "not all numbers exist"})
		}
		updated = int(n)
		return nil
	})
	if err != nil {
		return 0, domain.FromDB(s.db, err, "resi", "")
	}

	s.policy.Apply(ctx, invalidation.Event{Mutation: invalidation.ResiUpdated})
	s.logger.InfoContext(ctx, "resi position updated", "count", updated, "posisi", in.PosisiPaket)
	return updated, nil
}

func (s *ResiService) ListAll(ctx context.Context, req pagination.Request) (pagination.Page[ResiView], error) {
	page, err := s.listing.ListAll(ctx, req)
	if err != nil {
		return pagination.Page[ResiView]{}, err
	}
	return pagination.Map(page, resiRowView), nil
}

func (s *ResiService) Search(ctx context.Context, f listing.Filter) (pagination.Page[ResiView], error) {
	page, err := s.listing.ListFiltered(ctx, f)
	if err != nil {
		return pagination.Page[ResiView]{}, err
	}
	return pagination.Map(page, resiRowView), nil
}

// load reads a resi for a write, bypassing the record cache.
func (s *ResiService) load(ctx context.Context, noResi string) (*domain.Resi, error) {
	resi, err := s.resi.GetByIdentifier(ctx, noResi,
		repository.SelectRelation("User"),
		repository.SelectRelation("Cod"),
	)
	if err != nil {
		return nil, domain.FromRepository(err, "resi", noResi)
	}
	return resi, nil
}

func unique(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
