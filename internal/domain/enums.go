package domain

import "strings"

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleUser    Role = "USER"
	RoleCashier Role = "CASHIER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleCashier:
		return true
	}
	return false
}

// StatusPaket is the lifecycle of a package: DIPROSES while stored, DITERIMA once picked up.
type StatusPaket string

const (
	StatusDiproses StatusPaket = "DIPROSES"
	StatusDiterima StatusPaket = "DITERIMA"
)

func (s StatusPaket) Valid() bool {
	return s == StatusDiproses || s == StatusDiterima
}

type StatusPembayaran string

const (
	BelumBayar StatusPembayaran = "BELUM_BAYAR"
	SudahBayar StatusPembayaran = "SUDAH_BAYAR"
)

func (s StatusPembayaran) Valid() bool {
	return s == BelumBayar || s == SudahBayar
}

type MetodePembayaran string

const (
	MetodeCash     MetodePembayaran = "CASH"
	MetodeQRIS     MetodePembayaran = "QRIS"
	MetodeTransfer MetodePembayaran = "TRANSFER"
)

func (m MetodePembayaran) Valid() bool {
	switch m {
	case MetodeCash, MetodeQRIS, MetodeTransfer:
		return true
	}
	return false
}

type AlamatPengambilan string

const (
	AlamatTanjung AlamatPengambilan = "TANJUNG"
	AlamatKM5     AlamatPengambilan = "KM5"
)

func (a AlamatPengambilan) Valid() bool {
	return a == AlamatTanjung || a == AlamatKM5
}

type StatusTransaksi string

const (
	TransaksiBerhasil     StatusTransaksi = "BERHASIL"
	TransaksiSudahDibayar StatusTransaksi = "SUDAH_DIBAYAR"
	TransaksiBelumDibayar StatusTransaksi = "BELUM_DIBAYAR"
)

func (s StatusTransaksi) Valid() bool {
	switch s {
	case TransaksiBerhasil, TransaksiSudahDibayar, TransaksiBelumDibayar:
		return true
	}
	return false
}

// NormalizeNoResi canonicalizes a tracking number: trimmed and upper-cased.
func NormalizeNoResi(noResi string) string {
	return strings.ToUpper(strings.TrimSpace(noResi))
}

// NormalizeNoResiList canonicalizes every number in the list.
func NormalizeNoResiList(numbers []string) []string {
	out := make([]string, len(numbers))
	for i, n := range numbers {
		out[i] = NormalizeNoResi(n)
	}
	return out
}
