package httpapi

import (
	"net/http"
	"strconv"

	"github.com/goliatone/go-jastip/internal/auth"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/internal/service"
	"github.com/gorilla/mux"
)

const msgRetrieved = "Get retrieved successfully"

func claimsOf(r *http.Request) *auth.Claims {
	claims, _ := auth.FromContext(r.Context())
	return claims
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, domain.Validation("invalid user id")
	}
	return id, nil
}

// selfOrStaff lets USER callers reach only their own record.
func (a *api) selfOrStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsOf(r)
		id, err := pathID(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		if claims == nil || (!claims.HasRole(domain.RoleAdmin, domain.RoleCashier) && claims.UserID != id) {
			a.writeError(w, r, domain.Forbidden("insufficient permissions"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// auth

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decode(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	user, err := a.svc.Auth.Register(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "User registered successfully", user)
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decode(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	user, err := a.svc.Auth.Login(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Login successful", user)
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	user, err := a.svc.Auth.Me(r.Context(), claimsOf(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, msgRetrieved, user)
}

func (a *api) changePassword(w http.ResponseWriter, r *http.Request) {
	var in service.ChangePasswordInput
	if err := decode(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.svc.Auth.ChangePassword(r.Context(), claimsOf(r).UserID, in); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Password changed successfully", nil)
}

// users

// createUser is public. Only admins pick the role of the new user.
func (a *api) createUser(w http.ResponseWriter, r *http.Request) {
	var in service.CreateUserInput
	if err := decode(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	if claims := claimsOf(r); claims == nil || !claims.HasRole(domain.RoleAdmin) {
		in.Role = domain.RoleUser
	}

	user, err := a.svc.Users.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "User created successfully", user)
}

func (a *api) listUsers(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	page, err := a.svc.Users.ListAll(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, msgRetrieved, pageBody("users", page))
}

func (a *api) searchUsers(w http.ResponseWriter, r *http.Request) {
	f, err := filterRequest(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	page, err := a.svc.Users.Search(r.Context(), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, msgRetrieved, pageBody("users", page))
}

func (a *api) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	user, err := a.svc.Users.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, msgRetrieved, user)
}

func (a *api) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var in service.UpdateUserInput
	if err := decode(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	user, err := a.svc.Users.Update(r.Context(), id, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User updated successfully", user)
}

// resi

func (a *api) createResi(w http.ResponseWriter, r *http.Request) {
	var in service.CreateResiInput
	if err := decode(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	resi, err := a.svc.Resi.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Resi created successfully", resi)
}

func (a *api) listResi(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	page, err := a.svc.Resi.ListAll(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, msgRetrieved, pageBody("resi", page))
}

func (a *api) searchResi(w http.ResponseWriter, r *http.Request) {
	f, err := filterRequest(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	page, err := a.svc.Resi.Search(r.Context(), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, msgRetrieved, pageBody("resi", page))
}

// getResi serves any resi to staff and only owned resi to customers.
// Customers asking for someone else's resi get a 404.
func (a *api) getResi(w http.ResponseWriter, r *http.Request) {
	noResi := mux.Vars(r)["noResi"]
	resi, err := a.svc.Resi.Get(r.Context(), noResi)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if claims := claimsOf(r); !claims.HasRole(domain.RoleAdmin, domain.RoleCashier) && claims.UserID != resi.UserID {
		a.writeError(w, r, domain.NotFound("resi", resi.NoResi))
		return
	}
	writeData(w, http.StatusOK, msgRetrieved, resi)
}

func (a *api) updateResi(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateResiInput
	if err := decode(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	resi, err := a.svc.Resi.Update(r.Context(), mux.Vars(r)["noResi"], in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Resi updated successfully", resi)
}

func (a *api) updatePosisi(w http.ResponseWriter, r *http.Request) {
	var in service.UpdatePosisiInput
	if err := decode(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	n, err := a.svc.Resi.UpdatePosisi(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Resi updated successfully", map[string]any{
		"updated":      n,
		"posisi_paket": in.PosisiPaket,
	})
}

func (a *api) deleteResi(w http.ResponseWriter, r *http.Request) {
	resi, err := a.svc.Resi.Delete(r.Context(), mux.Vars(r)["noResi"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Resi deleted successfully", resi)
}

// transaksi

func (a *api) createTransaksi(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTransaksiInput
	if err := decode(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	trx, err := a.svc.Transaksi.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Transaksi created successfully", trx)
}

func (a *api) listTransaksi(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	page, err := a.svc.Transaksi.ListAll(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, msgRetrieved, pageBody("transaksi", page))
}

func (a *api) searchTransaksi(w http.ResponseWriter, r *http.Request) {
	f, err := filterRequest(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	page, err := a.svc.Transaksi.Search(r.Context(), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, msgRetrieved, pageBody("transaksi", page))
}
