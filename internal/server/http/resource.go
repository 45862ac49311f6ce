package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/universal-api/internal/access"
	"github.com/and161185/universal-api/internal/convert"
	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/logging"
	"github.com/and161185/universal-api/internal/metrics"
	"github.com/and161185/universal-api/internal/model"
)

const maxBodyBytes = 1 << 20

// ownedStore is the service surface shared by every owned resource kind.
type ownedStore[T, In any] interface {
	Create(ctx context.Context, ownerID string, in In) (*T, error)
	Get(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context) ([]T, error)
	ListByOwner(ctx context.Context, ownerID string) ([]T, error)
	Update(ctx context.Context, id int64, in In) (*T, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// resource serves CRUD for one owned record kind. Every single-record path
// fetches first (NotFound), then authorizes (Forbidden), then acts.
type resource[T, In, V any] struct {
	name    string
	prefix  string
	svc     ownedStore[T, In]
	owner   func(T) string
	id      func(T) int64
	view    func(T) V
	metrics *metrics.Metrics
}

func (rs *resource[T, In, V]) routes(r chi.Router) {
	r.Post("/", rs.create)
	r.Get("/", rs.listAll)
	r.Get("/me", rs.listMine)
	r.Get("/by/{user_id}", rs.listByUser)
	r.Get("/{id}", rs.get)
	r.Put("/{id}", rs.update)
	r.Delete("/{id}", rs.delete)
}

func (rs *resource[T, In, V]) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeError(w, r, errs.ErrUnauthenticated)
		return
	}
	var in In
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := rs.svc.Create(r.Context(), caller.Subject, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", rs.prefix+"/"+strconv.FormatInt(rs.id(*rec), 10))
	writeJSON(w, http.StatusCreated, convert.With(rs.view(*rec), caller))
}

func (rs *resource[T, In, V]) listAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeError(w, r, errs.ErrUnauthenticated)
		return
	}
	if err := rs.authorize(r.Context(), "list_all", access.ListAll(caller)); err != nil {
		writeError(w, r, err)
		return
	}
	recs, err := rs.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.WithAll(recs, rs.view, caller))
}

func (rs *resource[T, In, V]) listMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeError(w, r, errs.ErrUnauthenticated)
		return
	}
	recs, err := rs.svc.ListByOwner(r.Context(), caller.Subject)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.WithAll(recs, rs.view, caller))
}

func (rs *resource[T, In, V]) listByUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeError(w, r, errs.ErrUnauthenticated)
		return
	}
	target := chi.URLParam(r, "user_id")
	if err := rs.authorize(r.Context(), "list_by_user", access.ListUser(caller, target)); err != nil {
		writeError(w, r, err)
		return
	}
	recs, err := rs.svc.ListByOwner(r.Context(), target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.WithAll(recs, rs.view, caller))
}

func (rs *resource[T, In, V]) get(w http.ResponseWriter, r *http.Request) {
	caller, rec, err := rs.fetch(r, "get")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.With(rs.view(*rec), caller))
}

func (rs *resource[T, In, V]) update(w http.ResponseWriter, r *http.Request) {
	caller, rec, err := rs.fetch(r, "update")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in In
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := rs.svc.Update(r.Context(), rs.id(*rec), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.With(rs.view(*updated), caller))
}

func (rs *resource[T, In, V]) delete(w http.ResponseWriter, r *http.Request) {
	caller, rec, err := rs.fetch(r, "delete")
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := rs.svc.Delete(r.Context(), rs.id(*rec))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		// removed concurrently after the fetch
		writeError(w, r, errs.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, convert.With(rs.view(*rec), caller))
}

// fetch resolves the caller, loads the target record and applies the owner-or-admin rule.
func (rs *resource[T, In, V]) fetch(r *http.Request, action string) (model.Identity, *T, error) {
	caller, ok := IdentityFromCtx(r.Context())
	if !ok {
		return model.Identity{}, nil, errs.ErrUnauthenticated
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return caller, nil, errs.Invalid("id", "must be a positive integer")
	}
	rec, err := rs.svc.Get(r.Context(), id)
	if err != nil {
		return caller, nil, err
	}
	if err := rs.authorize(r.Context(), action, access.Record(caller, rs.owner(*rec))); err != nil {
		return caller, nil, err
	}
	return caller, rec, nil
}

func (rs *resource[T, In, V]) authorize(ctx context.Context, action string, d access.Decision) error {
	rs.metrics.Authz(rs.name, action, string(d.Branch))
	log := logging.FromContext(ctx).With(
		zap.String("resource", rs.name),
		zap.String("action", action),
		zap.String("branch", string(d.Branch)),
	)
	if !d.Allowed {
		log.Info("authz denied")
	} else {
		log.Debug("authz granted")
	}
	return d.Err()
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Invalid("body", "is required")
		}
		return errs.Invalid("body", "malformed JSON")
	}
	return nil
}
