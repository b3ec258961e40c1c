package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"carelink/internal/db"
	"carelink/internal/user"
)

func TestAdminUserCRUD(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "root", user.RoleAdmin)

	w := s.do("POST", "/users", admin, gin.H{"username": "pat1", "password": "pw"})
	if w.Code != http.StatusCreated || !contains(w.Body.String(), `"role":"patient"`) {
		t.Fatalf("create patient failed: %d %s", w.Code, w.Body.String())
	}
	w = s.do("POST", "/users", admin, gin.H{"username": "doc1", "password": "pw", "role": "doctor"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create doctor failed: %d %s", w.Code, w.Body.String())
	}
	if w := s.do("POST", "/users", admin, gin.H{"username": "x", "password": "pw", "role": "superuser"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown role should be 400, got %d", w.Code)
	}
	if w := s.do("POST", "/users", admin, gin.H{"username": "pat1", "password": "pw"}); w.Code != http.StatusBadRequest {
		t.Errorf("duplicate username should be 400, got %d", w.Code)
	}
	if w := s.do("POST", "/users", admin, gin.H{"username": "nopw"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing password should be 400, got %d", w.Code)
	}

	w = s.do("GET", "/users?role=patient", admin, nil)
	if w.Code != http.StatusOK || !contains(w.Body.String(), "pat1") || contains(w.Body.String(), "doc1") {
		t.Errorf("role filter failed: %d %s", w.Code, w.Body.String())
	}

	var doc user.User
	if err := db.DB.Where("username = ?", "doc1").First(&doc).Error; err != nil {
		t.Fatalf("lookup: %v", err)
	}
	path := fmt.Sprintf("/users/%d", doc.ID)

	w = s.do("PUT", path, admin, gin.H{"role": "admin"})
	if w.Code != http.StatusOK {
		t.Fatalf("update failed: %d %s", w.Code, w.Body.String())
	}
	w = s.do("GET", path, admin, nil)
	if w.Code != http.StatusOK || !contains(w.Body.String(), `"role":"admin"`) {
		t.Errorf("role not updated: %s", w.Body.String())
	}
	if w := s.do("PUT", path, admin, gin.H{"role": "owner"}); w.Code != http.StatusBadRequest {
		t.Errorf("invalid role update should be 400, got %d", w.Code)
	}

	w = s.do("DELETE", path, admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete failed: %d %s", w.Code, w.Body.String())
	}
	if w := s.do("DELETE", path, admin, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete should be 404, got %d", w.Code)
	}
	if w := s.do("GET", "/users/9999", admin, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing user should be 404, got %d", w.Code)
	}
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "root", user.RoleAdmin)
	var u user.User
	db.DB.Where("username = ?", "root").First(&u)

	w := s.do("DELETE", fmt.Sprintf("/users/%d", u.ID), admin, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("self delete should be 400, got %d", w.Code)
	}
}

func TestUserRoutesForbiddenForNonAdmins(t *testing.T) {
	s := newTestServer(t)
	doctor := s.login(t, "drno", user.RoleDoctor)
	for _, path := range []string{"/users", "/users/1"} {
		if w := s.do("GET", path, doctor, nil); w.Code != http.StatusForbidden {
			t.Errorf("GET %s as doctor should be 403, got %d", path, w.Code)
		}
	}
}

func TestUpdateMe(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "selfie", user.RolePatient)

	w := s.do("PUT", "/users/me", token, gin.H{"password": "newpw"})
	if w.Code != http.StatusOK {
		t.Fatalf("update me failed: %d %s", w.Code, w.Body.String())
	}
	var u user.User
	db.DB.Where("username = ?", "selfie").First(&u)
	if err := user.CheckPassword(u.PasswordHash, "newpw"); err != nil {
		t.Errorf("password not updated: %v", err)
	}

	w = s.do("GET", "/users/me", token, nil)
	if w.Code != http.StatusOK || !contains(w.Body.String(), "selfie") {
		t.Errorf("get me failed: %d %s", w.Code, w.Body.String())
	}
}
