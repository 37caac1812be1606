package service

import (
	"context"
	"fmt"
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

// VolumeDiscount is applied to the summed jastip fee of a transaksi that
// picks up more than one resi.
var VolumeDiscount = decimal.RequireFromString("0.8")

type CreateTransaksiInput struct {
	UserID            int64                    `json:"user_id"`
	NomorResi         []string                 `json:"nomor_resi"`
	TanggalDiambil    time.Time                `json:"tanggal_diambil"`
	MetodePembayaran  domain.MetodePembayaran  `json:"metode_pembayaran"`
	AlamatPengambilan domain.AlamatPengambilan `json:"alamat_pengambilan"`
	Catatan           string                   `json:"catatan"`
}

func (in CreateTransaksiInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.UserID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.NomorResi, validation.Required, validation.Each(validation.Required)),
		validation.Field(&in.TanggalDiambil, validation.Required),
		validation.Field(&in.MetodePembayaran, validation.Required,
			validation.In(domain.MetodeCash, domain.MetodeQRIS, domain.MetodeTransfer)),
		validation.Field(&in.AlamatPengambilan, validation.Required,
			validation.In(domain.AlamatTanjung, domain.AlamatKM5)),
		validation.Field(&in.Catatan, validation.Length(0, 500)),
	)
}

// Totals are the amounts charged by a transaksi.
type Totals struct {
	FeeJastip decimal.Decimal
	JumlahCod decimal.Decimal
	FeeCod    decimal.Decimal
}

// ComputeTotals sums the fees of the picked up resi. The jastip fee gets
// VolumeDiscount when there is more than one resi. COD amounts are plain
// sums, resi without COD count as zero.
func ComputeTotals(resi []*domain.Resi) Totals {
	var t Totals
	for _, r := range resi {
		t.FeeJastip = t.FeeJastip.Add(r.FeeJastip)
		if r.Cod != nil {
			t.JumlahCod = t.JumlahCod.Add(r.Cod.JumlahCod)
			t.FeeCod = t.FeeCod.Add(r.Cod.FeeCod)
		}
	}
	if len(resi) > 1 {
		t.FeeJastip = t.FeeJastip.Mul(VolumeDiscount)
	}
	return t
}

// TransaksiService creates and lists pickup transactions.
type TransaksiService struct {
	db      *bun.DB
	users   repository.Repository[*domain.User]
	listing *listing.Service[domain.Transaksi]
	policy  *invalidation.Policy
	logger  *slog.Logger
	now     func() time.Time
}

func NewTransaksiService(
	db *bun.DB,
	users repository.Repository[*domain.User],
	list *listing.Service[domain.Transaksi],
	policy *invalidation.Policy,
	logger *slog.Logger,
) *TransaksiService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransaksiService{
		db:      db,
		users:   users,
		listing: list,
		policy:  policy,
		logger:  logger.With("service", "transaksi"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create records a pickup of the given resi by one user.
//
// Nothing is written unless the user exists and every number resolves to a
// distinct resi. The transaksi row, its items and the status flip of the
// resi to DITERIMA commit together. The status update only matches resi
// that are still DIPROSES, so a resi already picked up by a concurrent
// transaksi fails the whole unit with a Conflict.
func (s *TransaksiService) Create(ctx context.Context, in CreateTransaksiInput) (TransaksiView, error) {
	if err := in.Validate(); err != nil {
		return TransaksiView{}, domain.InvalidInput(err)
	}
	numbers := domain.NormalizeNoResiList(in.NomorResi)

	userID := strconv.FormatInt(in.UserID, 10)
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "user not found", "user_id", in.UserID)
		return TransaksiView{}, domain.FromRepository(err, "user", userID)
	}

	resi, err := s.resolve(ctx, numbers)
	if err != nil {
		return TransaksiView{}, err
	}

	totals := ComputeTotals(resi)
	now := s.now()

	trx := &domain.Transaksi{
		UserID:            user.ID,
		TanggalDiambil:    in.TanggalDiambil.UTC(),
		MetodePembayaran:  in.MetodePembayaran,
		AlamatPengambilan: in.AlamatPengambilan,
		TotalFeeJastip:    totals.FeeJastip,
		TotalJumlahCod:    totals.JumlahCod,
		TotalFeeCod:       totals.FeeCod,
		StatusTransaksi:   domain.TransaksiBerhasil,
		CreatedAt:         now,
	}
	if in.Catatan != "" {
		catatan := in.Catatan
		trx.Catatan = &catatan
	}

	ids := make([]int64, len(resi))
	items := make([]*domain.TransaksiItem, len(resi))
	for i, r := range resi {
		ids[i] = r.ID
		items[i] = &domain.TransaksiItem{ResiID: r.ID, Resi: r}
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(trx).Exec(ctx); err != nil {
			return err
		}

		for _, item := range items {
			item.TransaksiID = trx.ID
		}
		if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewUpdate().
			Table("resi").
			Set("status_paket = ?", domain.StatusDiterima).
			Set("updated_at = ?", now).
			Where("id IN (?)", bun.In(ids)).
			Where("status_paket = ?", domain.StatusDiproses).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if int(affected) != len(ids) {
			return domain.Conflict(fmt.Sprintf("%d of %d resi were already picked up", len(ids)-int(affected), len(ids)))
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create transaksi", "user_id", in.UserID, "resi", numbers, "error", err)
		return TransaksiView{}, domain.FromDB(s.db, err, "transaksi", "")
	}

	s.policy.Apply(ctx, invalidation.Event{
		Mutation: invalidation.TransaksiCreated,
		ID:       strconv.FormatInt(trx.ID, 10),
	})

	for _, r := range resi {
		r.StatusPaket = domain.StatusDiterima
		r.UpdatedAt = now
	}
	trx.User = user
	trx.Items = items

	s.logger.InfoContext(ctx, "transaksi created",
		"transaksi_id", trx.ID,
		"resi", len(resi),
		"fee_jastip", totals.FeeJastip.String(),
	)
	return NewTransaksiView(trx), nil
}

// resolve loads the resi with their COD records, in request order. Unknown
// and repeated numbers fail validation.
func (s *TransaksiService) resolve(ctx context.Context, numbers []string) ([]*domain.Resi, error) {
	var rows []*domain.Resi
	err := s.db.NewSelect().
		Model(&rows).
		Relation("Cod").
		Where("?TableAlias.no_resi IN (?)", bun.In(numbers)).
		Scan(ctx)
	if err != nil {
		return nil, domain.FromDB(s.db, err, "resi", "")
	}

	if len(rows) == len(numbers) {
		byNumber := make(map[string]*domain.Resi, len(rows))
		for _, r := range rows {
			byNumber[r.NoResi] = r
		}
		ordered := make([]*domain.Resi, len(numbers))
		for i, n := range numbers {
			ordered[i] = byNumber[n]
		}
		return ordered, nil
	}

	found := make(map[string]bool, len(rows))
	for _, r := range rows {
		found[r.NoResi] = true
	}
	var fields []errors.FieldError
	seen := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		switch {
		case seen[n]:
			fields = append(fields, errors.FieldError{Field: "nomor_resi", Message: "listed more than once", Value: n})
		case !found[n]:
			fields = append(fields, errors.FieldError{Field: "nomor_resi", Message: "not found", Value: n})
		}
		seen[n] = true
	}

	s.logger.WarnContext(ctx, "some resi numbers are invalid or not found", "requested", len(numbers), "found", len(rows))
	return nil, domain.Validation("some resi numbers are invalid or not found", fields...)
}

func (s *TransaksiService) ListAll(ctx context.Context, req pagination.Request) (pagination.Page[TransaksiView], error) {
	page, err := s.listing.ListAll(ctx, req)
	if err != nil {
		return pagination.Page[TransaksiView]{}, err
	}
	return pagination.Map(page, transaksiRowView), nil
}

func (s *TransaksiService) Search(ctx context.Context, f listing.Filter) (pagination.Page[TransaksiView], error) {
	page, err := s.listing.ListFiltered(ctx, f)
	if err != nil {
		return pagination.Page[TransaksiView]{}, err
	}
	return pagination.Map(page, transaksiRowView), nil
}
