package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"

	"noteria/internal/core"
	"noteria/internal/types"
)

const testUserID = "user-1"

const (
	catID1       = "c0000000-0000-4000-8000-000000000001"
	catID2       = "c0000000-0000-4000-8000-000000000002"
	catIDUnknown = "c0000000-0000-4000-8000-000000000009"
	catIDForeign = "c0000000-0000-4000-8000-0000000000ff"

	noteID1 = "a0000000-0000-4000-8000-000000000001"
	noteID2 = "a0000000-0000-4000-8000-000000000002"
	noteID3 = "a0000000-0000-4000-8000-000000000003"

	taskID1     = "b0000000-0000-4000-8000-000000000001"
	taskID2     = "b0000000-0000-4000-8000-000000000002"
	taskID3     = "b0000000-0000-4000-8000-000000000003"
	taskIDOther = "b0000000-0000-4000-8000-000000000009"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// serve routes req through a router with the handler mounted and the
// given user authenticated. An empty userID sends the request anonymously.
func serve(register func(chi.Router), userID, method, path string, body []byte) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	register(router)

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if userID != "" {
		req = req.WithContext(types.WithActor(req.Context(), types.Actor{ID: userID, Type: types.ActorTypeUser}))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testValidator() *core.Validator {
	return core.NewValidator(testLogger())
}

// --- categories ---

type fakeCategoryRepo struct {
	mu   sync.Mutex
	rows map[string]*types.Category
	err  error
}

func newFakeCategoryRepo(cats ...*types.Category) *fakeCategoryRepo {
	r := &fakeCategoryRepo{rows: make(map[string]*types.Category)}
	for _, c := range cats {
		r.rows[c.ID] = c
	}
	return r
}

func (r *fakeCategoryRepo) Exists(_ context.Context, id, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	c, ok := r.rows[id]
	return ok && c.UserID == userID, nil
}

func (r *fakeCategoryRepo) List(_ context.Context, userID string) ([]*types.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*types.Category{}
	for _, c := range r.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCategoryRepo) Create(_ context.Context, c *types.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.ID] = c
	return nil
}

func (r *fakeCategoryRepo) Update(_ context.Context, id, userID, name string, color types.CategoryColor) (*types.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok || c.UserID != userID {
		return nil, types.NewAppError(types.ErrCodeNotFoundCategory, "category not found", nil)
	}
	c.Name, c.Color = name, color
	return c, nil
}

func (r *fakeCategoryRepo) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok || c.UserID != userID {
		return types.NewAppError(types.ErrCodeNotFoundCategory, "category not found", nil)
	}
	delete(r.rows, id)
	return nil
}

// --- tasks ---

type fakeTaskRepo struct {
	mu        sync.Mutex
	rows      map[string]*types.Task
	updateErr error
}

func newFakeTaskRepo(tasks ...*types.Task) *fakeTaskRepo {
	r := &fakeTaskRepo{rows: make(map[string]*types.Task)}
	for _, t := range tasks {
		r.rows[t.ID] = t
	}
	return r
}

func (r *fakeTaskRepo) get(id string) *types.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func (r *fakeTaskRepo) filter(keep func(*types.Task) bool) []*types.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*types.Task{}
	for _, t := range r.rows {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeTaskRepo) ListByUser(_ context.Context, userID string) ([]*types.Task, error) {
	return r.filter(func(t *types.Task) bool { return t.UserID == userID }), nil
}

func (r *fakeTaskRepo) ListByCategory(_ context.Context, userID, categoryID string) ([]*types.Task, error) {
	return r.filter(func(t *types.Task) bool { return t.UserID == userID && t.CategoryID == categoryID }), nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id, userID string) (*types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.UserID != userID {
		return nil, types.NewAppError(types.ErrCodeNotFoundTask, "task not found", nil)
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTaskRepo) Create(_ context.Context, t *types.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.rows[t.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) Update(_ context.Context, t *types.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	cp := *t
	r.rows[t.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id, userID string) (*types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.UserID != userID {
		return nil, types.NewAppError(types.ErrCodeNotFoundTask, "task not found", nil)
	}
	delete(r.rows, id)
	return t, nil
}

func (r *fakeTaskRepo) DeleteByCategory(_ context.Context, userID, categoryID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []string{}
	for id, t := range r.rows {
		if t.UserID == userID && t.CategoryID == categoryID {
			ids = append(ids, id)
			delete(r.rows, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// --- notes ---

type fakeNoteRepo struct {
	mu   sync.Mutex
	rows map[string]*types.Note
}

func newFakeNoteRepo(notes ...*types.Note) *fakeNoteRepo {
	r := &fakeNoteRepo{rows: make(map[string]*types.Note)}
	for _, n := range notes {
		r.rows[n.ID] = n
	}
	return r
}

func (r *fakeNoteRepo) ListByUser(_ context.Context, userID string) ([]*types.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*types.Note{}
	for _, n := range r.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNoteRepo) ListByCategory(_ context.Context, userID, categoryID string) ([]*types.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*types.Note{}
	for _, n := range r.rows {
		if n.UserID == userID && n.CategoryID == categoryID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNoteRepo) GetByID(_ context.Context, id, userID string) (*types.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		return nil, types.NewAppError(types.ErrCodeNotFoundNote, "note not found", nil)
	}
	cp := *n
	return &cp, nil
}

func (r *fakeNoteRepo) Create(_ context.Context, n *types.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[n.ID] = n
	return nil
}

func (r *fakeNoteRepo) Update(_ context.Context, n *types.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.rows[n.ID] = &cp
	return nil
}

func (r *fakeNoteRepo) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		return types.NewAppError(types.ErrCodeNotFoundNote, "note not found", nil)
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeNoteRepo) DeleteByCategory(_ context.Context, userID, categoryID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, note := range r.rows {
		if note.UserID == userID && note.CategoryID == categoryID {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

// --- reminder hooks ---

type recordingHooks struct {
	mu      sync.Mutex
	created []string
	changed []string
	deleted []string
}

func (h *recordingHooks) OnTaskCreated(_ context.Context, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created = append(h.created, id)
}

func (h *recordingHooks) OnTaskReminderFieldsChanged(_ context.Context, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changed = append(h.changed, id)
}

func (h *recordingHooks) OnTaskDeleted(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, id)
}

func (h *recordingHooks) ActiveTaskIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.created...)
}
