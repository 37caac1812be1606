package domain

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// User is anyone known to the system: customers receiving packages, cashiers and admins.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	Name           string    `bun:"name,notnull" json:"name"`
	WhatsappNumber string    `bun:"whatsapp_number,notnull" json:"whatsapp_number"`
	Address        string    `bun:"address,notnull" json:"address"`
	Role           Role      `bun:"role,notnull" json:"role"`
	Email          *string   `bun:"email,unique" json:"email,omitempty"`
	PasswordHash   *string   `bun:"password_hash" json:"-" msgpack:"-"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Resi is one received package identified by its tracking number.
type Resi struct {
	bun.BaseModel `bun:"table:resi,alias:r"`

	ID              int64           `bun:"id,pk,autoincrement" json:"id"`
	NoResi          string          `bun:"no_resi,notnull,unique" json:"no_resi"`
	UserID          int64           `bun:"user_id,notnull" json:"user_id"`
	TanggalDiterima time.Time       `bun:"tanggal_diterima,notnull" json:"tanggal_diterima"`
	PosisiPaket     string          `bun:"posisi_paket,notnull" json:"posisi_paket"`
	EstimasiTiba    time.Time       `bun:"estimasi_tiba,notnull" json:"estimasi_tiba"`
	StatusPaket     StatusPaket     `bun:"status_paket,notnull" json:"status_paket"`
	StatusCod       bool            `bun:"status_cod,notnull" json:"status_cod"`
	FeeJastip       decimal.Decimal `bun:"fee_jastip,type:numeric,notnull" json:"fee_jastip"`
	CreatedAt       time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time       `bun:"updated_at,notnull" json:"updated_at"`

	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Cod  *COD  `bun:"rel:has-one,join:id=resi_id" json:"cod,omitempty"`
}

// COD is the cash-on-delivery record of a Resi. It only exists when the Resi
// was created with StatusCod set and a non zero amount.
type COD struct {
	bun.BaseModel `bun:"table:cod,alias:c"`

	ID                int64            `bun:"id,pk,autoincrement" json:"id"`
	ResiID            int64            `bun:"resi_id,notnull,unique" json:"resi_id"`
	JumlahCod         decimal.Decimal  `bun:"jumlah_cod,type:numeric,notnull" json:"jumlah_cod"`
	FeeCod            decimal.Decimal  `bun:"fee_cod,type:numeric,notnull" json:"fee_cod"`
	StatusPembayaran  StatusPembayaran `bun:"status_pembayaran,notnull" json:"status_pembayaran"`
	MethodPembayaran  MetodePembayaran `bun:"method_pembayaran,notnull" json:"method_pembayaran"`
	TanggalPembayaran *time.Time       `bun:"tanggal_pembayaran" json:"tanggal_pembayaran,omitempty"`
}

// Transaksi is a pickup batching one or more Resi into a single payment.
type Transaksi struct {
	bun.BaseModel `bun:"table:transaksi,alias:t"`

	ID                int64             `bun:"id,pk,autoincrement" json:"id"`
	UserID            int64             `bun:"user_id,notnull" json:"user_id"`
	TanggalDiambil    time.Time         `bun:"tanggal_diambil,notnull" json:"tanggal_diambil"`
	MetodePembayaran  MetodePembayaran  `bun:"metode_pembayaran,notnull" json:"metode_pembayaran"`
	AlamatPengambilan AlamatPengambilan `bun:"alamat_pengambilan,notnull" json:"alamat_pengambilan"`
	TotalFeeJastip    decimal.Decimal   `bun:"total_fee_jastip,type:numeric,notnull" json:"total_fee_jastip"`
	TotalJumlahCod    decimal.Decimal   `bun:"total_jumlah_cod,type:numeric,notnull" json:"total_jumlah_cod"`
	TotalFeeCod       decimal.Decimal   `bun:"total_fee_cod,type:numeric,notnull" json:"total_fee_cod"`
	StatusTransaksi   StatusTransaksi   `bun:"status_transaksi,notnull" json:"status_transaksi"`
	Catatan           *string           `bun:"catatan" json:"catatan,omitempty"`
	CreatedAt         time.Time         `bun:"created_at,notnull" json:"created_at"`

	User  *User            `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Items []*TransaksiItem `bun:"rel:has-many,join:id=transaksi_id" json:"items,omitempty"`
}

// TransaksiItem links one Resi to the Transaksi that picked it up.
type TransaksiItem struct {
	bun.BaseModel `bun:"table:transaksi_item,alias:ti"`

	ID          int64 `bun:"id,pk,autoincrement" json:"id"`
	TransaksiID int64 `bun:"transaksi_id,notnull" json:"transaksi_id"`
	ResiID      int64 `bun:"resi_id,notnull,unique" json:"resi_id"`

	Resi *Resi `bun:"rel:belongs-to,join:resi_id=id" json:"resi,omitempty"`
}

var (
	_ bun.BeforeAppendModelHook = (*User)(nil)
	_ bun.BeforeAppendModelHook = (*Resi)(nil)
	_ bun.BeforeAppendModelHook = (*Transaksi)(nil)
)

func (u *User) BeforeAppendModel(_ context.Context, query bun.Query) error {
	u.CreatedAt, u.UpdatedAt = stamp(query, u.CreatedAt, u.UpdatedAt)
	return nil
}

func (r *Resi) BeforeAppendModel(_ context.Context, query bun.Query) error {
	r.CreatedAt, r.UpdatedAt = stamp(query, r.CreatedAt, r.UpdatedAt)
	return nil
}

func (t *Transaksi) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return nil
}

func stamp(query bun.Query, created, updated time.Time) (time.Time, time.Time) {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if created.IsZero() {
			created = now
		}
		updated = now
	case *bun.UpdateQuery:
		updated = now
	}
	return created, updated
}

// go-repository-bun is keyed on uuid ids. Integer keys are assigned by the
// database, so GetID reports a non nil sentinel and SetID is never used.
var intKeySentinel = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// UserHandlers builds the repository handlers for User. Identifier lookups use email.
func UserHandlers() repository.ModelHandlers[*User] {
	return repository.ModelHandlers[*User]{
		NewRecord:     func() *User { return &User{} },
		GetID:         func(*User) uuid.UUID { return intKeySentinel },
		SetID:         func(*User, uuid.UUID) {},
		GetIdentifier: func() string { return "email" },
	}
}

// ResiHandlers builds the repository handlers for Resi. Identifier lookups use no_resi.
func ResiHandlers() repository.ModelHandlers[*Resi] {
	return repository.ModelHandlers[*Resi]{
		NewRecord:     func() *Resi { return &Resi{} },
		GetID:         func(*Resi) uuid.UUID { return intKeySentinel },
		SetID:         func(*Resi, uuid.UUID) {},
		GetIdentifier: func() string { return "no_resi" },
	}
}
