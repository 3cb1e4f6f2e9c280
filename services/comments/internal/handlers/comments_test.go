package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/example/devtube/internal/platform/auth"
	"github.com/example/devtube/services/comments/internal/directory"
	"github.com/example/devtube/services/comments/internal/domain"
	"github.com/example/devtube/services/comments/internal/moderation"
	"github.com/example/devtube/services/comments/internal/service"
	"github.com/example/devtube/services/comments/internal/store"
)

var testSecret = []byte("test-secret")

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := directory.NewMemory()
	dir.PutVideo(domain.Video{ID: "V1", CreatorID: "carol"})
	dir.PutProfile(domain.Profile{UserID: "alice", Username: "alice_dev"})
	svc, err := service.New(service.Options{Store: store.NewInMemoryCommentStore(), Videos: dir, Profiles: dir})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	r := chi.NewRouter()
	Mount(r, svc, auth.JWTVerifier{Secret: testSecret})
	return r
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func do(t *testing.T, h http.Handler, method, url, body, tok string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error.Code
}

func submit(t *testing.T, h http.Handler, tok, body string) moderation.CommentView {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/videos/V1/comments", body, tok)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var v moderation.CommentView
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestSubmitAndList(t *testing.T) {
	h := newRouter(t)
	alice := token(t, "alice", "viewer")

	v := submit(t, h, alice, `{"content":"Hello **world**"}`)
	if v.Content != "Hello **world**" || v.ParentID != nil {
		t.Fatalf("unexpected comment: %+v", v)
	}
	if a, ok := v.Author.(moderation.AttributedView); !ok || a.Username != "alice_dev" {
		t.Fatalf("unexpected author: %#v", v.Author)
	}

	rr := do(t, h, http.MethodGet, "/v1/videos/V1/comments", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var list listResponse
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Comments) != 1 || list.Comments[0].ID != v.ID {
		t.Fatalf("unexpected list: %+v", list.Comments)
	}
}

func TestSubmit_Errors(t *testing.T) {
	h := newRouter(t)
	alice := token(t, "alice", "viewer")

	if rr := do(t, h, http.MethodPost, "/v1/videos/V1/comments", `{"content":"hi"}`, ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	rr := do(t, h, http.MethodPost, "/v1/videos/V1/comments", `{"content":"   "}`, alice)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "VALIDATION_FAILED" {
		t.Fatalf("expected validation failure, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/v1/videos/V1/comments", `{"content":`, alice)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "INVALID_JSON" {
		t.Fatalf("expected invalid json, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/v1/videos/V1/comments", `{"content":"hi","parent_id":"nope"}`, alice)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "INVALID_PARENT" {
		t.Fatalf("expected invalid parent, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/v1/videos/V404/comments", `{"content":"hi"}`, alice)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestReactDeleteAndParentGone(t *testing.T) {
	h := newRouter(t)
	alice := token(t, "alice", "viewer")
	bob := token(t, "bob", "viewer")

	root := submit(t, h, alice, `{"content":"root"}`)
	submit(t, h, bob, `{"content":"reply","parent_id":"`+root.ID+`"}`)

	rr := do(t, h, http.MethodPost, "/v1/comments/"+root.ID+"/reactions", `{"kind":"dislike"}`, bob)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var counts domain.ReactionCounts
	_ = json.NewDecoder(rr.Body).Decode(&counts)
	if counts.Dislikes != 1 || counts.ViewerState != domain.ReactionDisliked {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	if rr := do(t, h, http.MethodDelete, "/v1/comments/"+root.ID, "", bob); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodDelete, "/v1/comments/"+root.ID, "", alice); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/v1/comments/"+root.ID+"/reactions", `{"kind":"like"}`, bob); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestModerationRoutes(t *testing.T) {
	h := newRouter(t)
	alice := token(t, "alice", "viewer")
	carol := token(t, "carol", "creator")
	mod := token(t, "mod", "admin")

	c := submit(t, h, alice, `{"content":"hello"}`)

	if rr := do(t, h, http.MethodPut, "/v1/comments/"+c.ID+"/pin", "", alice); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-creator pin, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPut, "/v1/comments/"+c.ID+"/pin", "", carol); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/v1/comments/"+c.ID+"/flag", `{"reason":"spam"}`, carol); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	if rr := do(t, h, http.MethodGet, "/v1/admin/comments/flagged", "", carol); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rr.Code)
	}
	rr := do(t, h, http.MethodGet, "/v1/admin/comments/flagged?limit=10", "", mod)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var queue flaggedResponse
	if err := json.NewDecoder(rr.Body).Decode(&queue); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(queue.Comments) != 1 || !queue.Comments[0].Comment.IsPinned {
		t.Fatalf("unexpected queue: %+v", queue.Comments)
	}

	if rr := do(t, h, http.MethodDelete, "/v1/comments/"+c.ID+"/flag", "", mod); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodDelete, "/v1/comments/"+c.ID+"/pin", "", mod); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestList_InvalidTokenRejected(t *testing.T) {
	h := newRouter(t)
	if rr := do(t, h, http.MethodGet, "/v1/videos/V1/comments", "", "garbage"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
