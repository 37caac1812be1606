package testsupport

import (
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

//go:embed testdata/dataset.json
var defaultDataset []byte

// UserFixture describes a user row in a dataset file.
type UserFixture struct {
	Name           string      `json:"name"`
	WhatsappNumber string      `json:"whatsapp_number"`
	Address        string      `json:"address"`
	Role           domain.Role `json:"role"`
	Email          string      `json:"email"`
}

// ResiFixture describes a resi row. User is the 1-based position of the owner
// in the dataset's user list. A non zero JumlahCod adds a COD record.
type ResiFixture struct {
	NoResi      string          `json:"no_resi"`
	User        int             `json:"user"`
	PosisiPaket string          `json:"posisi_paket"`
	FeeJastip   decimal.Decimal `json:"fee_jastip"`
	JumlahCod   decimal.Decimal `json:"jumlah_cod"`
	FeeCod      decimal.Decimal `json:"fee_cod"`
}

// Dataset is a set of rows seeded together.
type Dataset struct {
	Users []UserFixture `json:"users"`
	Resi  []ResiFixture `json:"resi"`
}

// Seeded holds the rows created from a Dataset, in dataset order.
type Seeded struct {
	Users []*domain.User
	Resi  []*domain.Resi
}

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// The path is relative to the test package directory.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// DefaultDataset returns the bundled dataset: four users (two customers, an
// admin and a cashier) and five resi, two of them with COD.
func DefaultDataset(t testing.TB) Dataset {
	t.Helper()

	var ds Dataset
	if err := json.Unmarshal(defaultDataset, &ds); err != nil {
		t.Fatalf("failed to unmarshal default dataset: %v", err)
	}
	return ds
}

// Seed inserts ds into db. Resi are inserted in order, so later rows get
// higher ids.
func Seed(t testing.TB, db bun.IDB, ds Dataset) Seeded {
	t.Helper()

	ctx := context.Background()
	var out Seeded

	for _, f := range ds.Users {
		out.Users = append(out.Users, CreateUser(t, db, f))
	}

	for _, f := range ds.Resi {
		if f.User < 1 || f.User > len(out.Users) {
			t.Fatalf("resi %s references unknown user %d", f.NoResi, f.User)
		}
		resi := CreateResi(t, db, out.Users[f.User-1].ID, f)

		if !f.JumlahCod.IsZero() {
			cod := &domain.COD{
				ResiID:           resi.ID,
				JumlahCod:        f.JumlahCod,
				FeeCod:           f.FeeCod,
				StatusPembayaran: domain.BelumBayar,
				MethodPembayaran: domain.MetodeCash,
			}
			if _, err := db.NewInsert().Model(cod).Exec(ctx); err != nil {
				t.Fatalf("failed to seed cod for %s: %v", f.NoResi, err)
			}
			resi.Cod = cod
		}
		out.Resi = append(out.Resi, resi)
	}

	return out
}

// CreateUser inserts a single user.
func CreateUser(t testing.TB, db bun.IDB, f UserFixture) *domain.User {
	t.Helper()

	user := &domain.User{
		Name:           f.Name,
		WhatsappNumber: f.WhatsappNumber,
		Address:        f.Address,
		Role:           f.Role,
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if f.Email != "" {
		email := f.Email
		user.Email = &email
	}

	if _, err := db.NewInsert().Model(user).Exec(context.Background()); err != nil {
		t.Fatalf("failed to seed user %s: %v", f.Name, err)
	}
	return user
}

// CreateResi inserts a single resi owned by userID with status DIPROSES.
func CreateResi(t testing.TB, db bun.IDB, userID int64, f ResiFixture) *domain.Resi {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	resi := &domain.Resi{
		NoResi:          domain.NormalizeNoResi(f.NoResi),
		UserID:          userID,
		TanggalDiterima: now,
		PosisiPaket:     f.PosisiPaket,
		EstimasiTiba:    now.Add(72 * time.Hour),
		StatusPaket:     domain.StatusDiproses,
		StatusCod:       !f.JumlahCod.IsZero(),
		FeeJastip:       f.FeeJastip,
	}

	if _, err := db.NewInsert().Model(resi).Exec(context.Background()); err != nil {
		t.Fatalf("failed to seed resi %s: %v", f.NoResi, err)
	}
	return resi
}
