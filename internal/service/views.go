package service

import (
	"time"

	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/shopspring/decimal"
)

// UserView is the public shape of a user. The password hash never leaves
// the service layer.
type UserView struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	WhatsappNumber string      `json:"whatsapp_number"`
	Address        string      `json:"address"`
	Role           domain.Role `json:"role"`
	Email          string      `json:"email,omitempty"`
	Token          string      `json:"token,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func NewUserView(u *domain.User) UserView {
	v := UserView{
		ID:             u.ID,
		Name:           u.Name,
		WhatsappNumber: u.WhatsappNumber,
		Address:        u.Address,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if u.Email != nil {
		v.Email = *u.Email
	}
	return v
}

// ResiView flattens a resi and its optional COD record.
type ResiView struct {
	ID                  int64                   `json:"id"`
	UserID              int64                   `json:"user_id"`
	NamaPenerima        string                  `json:"nama_penerima,omitempty"`
	NoResi              string                  `json:"no_resi"`
	TanggalDiterima     time.Time               `json:"tanggal_diterima"`
	PosisiPaket         string                  `json:"posisi_paket"`
	EstimasiTiba        time.Time               `json:"estimasi_tiba"`
	StatusPaket         domain.StatusPaket      `json:"status_paket"`
	StatusCod           bool                    `json:"status_cod"`
	FeeJastip           decimal.Decimal         `json:"fee_jastip"`
	JumlahCod           decimal.Decimal         `json:"jumlah_cod"`
	FeeCod              decimal.Decimal         `json:"fee_cod"`
	StatusPembayaranCod domain.StatusPembayaran `json:"status_pembayaran_cod,omitempty"`
	MethodPembayaran    domain.MetodePembayaran `json:"method_pembayaran,omitempty"`
	TanggalPembayaran   *time.Time              `json:"tanggal_pembayaran,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

func NewResiView(r *domain.Resi) ResiView {
	v := ResiView{
		ID:              r.ID,
		UserID:          r.UserID,
		NoResi:          r.NoResi,
		TanggalDiterima: r.TanggalDiterima,
		PosisiPaket:     r.PosisiPaket,
		EstimasiTiba:    r.EstimasiTiba,
		StatusPaket:     r.StatusPaket,
		StatusCod:       r.StatusCod,
		FeeJastip:       r.FeeJastip,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.User != nil {
		v.NamaPenerima = r.User.Name
	}
	if r.Cod != nil {
		v.JumlahCod = r.Cod.JumlahCod
		v.FeeCod = r.Cod.FeeCod
		v.StatusPembayaranCod = r.Cod.StatusPembayaran
		v.MethodPembayaran = r.Cod.MethodPembayaran
		v.TanggalPembayaran = r.Cod.TanggalPembayaran
	}
	return v
}

// Penerima is the contact of the user picking up a transaksi.
type Penerima struct {
	Name           string `json:"name"`
	WhatsappNumber string `json:"whatsapp_number"`
	Address        string `json:"address"`
}

// TransaksiResi is the snapshot of one resi inside a transaksi.
type TransaksiResi struct {
	NomorResi       string             `json:"nomor_resi"`
	TanggalDiterima time.Time          `json:"tanggal_diterima"`
	PosisiPaket     string             `json:"posisi_paket"`
	EstimasiTiba    time.Time          `json:"estimasi_tiba"`
	StatusPaket     domain.StatusPaket `json:"status_paket"`
	StatusCod       bool               `json:"status_cod"`
	UpdatedAt       time.Time          `json:"update_at"`
}

type TransaksiView struct {
	ID                int64                    `json:"id"`
	NamaPenerima      Penerima                 `json:"nama_penerima"`
	NomorResi         []TransaksiResi          `json:"nomor_resi"`
	TanggalDiambil    time.Time                `json:"tanggal_diambil"`
	FeeJastip         decimal.Decimal          `json:"fee_jastip"`
	JumlahCod         decimal.Decimal          `json:"jumlah_cod"`
	FeeCod            decimal.Decimal          `json:"fee_cod"`
	StatusTransaksi   domain.StatusTransaksi   `json:"status_transaksi"`
	MetodePembayaran  domain.MetodePembayaran  `json:"metode_pembayaran"`
	AlamatPengambilan domain.AlamatPengambilan `json:"alamat_pengambilan"`
	Catatan           string                   `json:"catatan"`
	CreatedAt         time.Time                `json:"created_at"`
}

// NewTransaksiView expects User, Items and Items.Resi to be loaded.
func NewTransaksiView(t *domain.Transaksi) TransaksiView {
	v := TransaksiView{
		ID:                t.ID,
		NomorResi:         make([]TransaksiResi, 0, len(t.Items)),
		TanggalDiambil:    t.TanggalDiambil,
		FeeJastip:         t.TotalFeeJastip,
		JumlahCod:         t.TotalJumlahCod,
		FeeCod:            t.TotalFeeCod,
		StatusTransaksi:   t.StatusTransaksi,
		MetodePembayaran:  t.MetodePembayaran,
		AlamatPengambilan: t.AlamatPengambilan,
		CreatedAt:         t.CreatedAt,
	}
	if t.User != nil {
		v.NamaPenerima = Penerima{
			Name:           t.User.Name,
			WhatsappNumber: t.User.WhatsappNumber,
			Address:        t.User.Address,
		}
	}
	if t.Catatan != nil {
		v.Catatan = *t.Catatan
	}
	for _, item := range t.Items {
		if item.Resi == nil {
			continue
		}
		r := item.Resi
		v.NomorResi = append(v.NomorResi, TransaksiResi{
			NomorResi:       r.NoResi,
			TanggalDiterima: r.TanggalDiterima,
			PosisiPaket:     r.PosisiPaket,
			EstimasiTiba:    r.EstimasiTiba,
			StatusPaket:     r.StatusPaket,
			StatusCod:       r.StatusCod,
			UpdatedAt:       r.UpdatedAt,
		})
	}
	return v
}

// The listing services work on model values, the views on pointers.

func userRowView(u domain.User) UserView { return NewUserView(&u) }
func resiRowView(r domain.Resi) ResiView { return NewResiView(&r) }
func transaksiRowView(t domain.Transaksi) TransaksiView { return NewTransaksiView(&t) }
