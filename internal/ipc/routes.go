package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	tsdeverrors "github.com/conneroisu/tsdev/internal/errors"
	"github.com/conneroisu/tsdev/internal/logging"
)

// Coordinator is the subset of internal/compiler.Coordinator the IPC
// layer depends on, declared locally to avoid an import cycle.
type Coordinator interface {
	FileGroup(ctx context.Context, path string) (map[string]string, error)
}

// Registrar is the subset of internal/watcher.FileWatcher the IPC
// layer depends on.
type Registrar interface {
	AddPath(path string) error
}

// compileResponse is spec.md §4.2's /compile reply shape.
type compileResponse struct {
	Filenames map[string]string `json:"filenames"`
}

// fileRequiredResponse is spec.md §4.2's /file-required reply shape.
type fileRequiredResponse struct {
	Status string `json:"status"`
}

// errorResponse carries a failed compile's Kind and Message, per
// spec.md §4.2 ("the server replies with a JSON error body carrying
// kind and message").
type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Routes implements the two IPC handlers against a Coordinator and a
// watcher Registrar.
type Routes struct {
	coordinator Coordinator
	watcher     Registrar
	log         logging.Logger
}

// NewRoutes constructs Routes.
func NewRoutes(coordinator Coordinator, watcher Registrar, log logging.Logger) *Routes {
	return &Routes{coordinator: coordinator, watcher: watcher, log: log.WithComponent("ipc")}
}

func (rt *Routes) handleCompile(w http.ResponseWriter, r *http.Request) {
	var path string
	if err := json.NewDecoder(r.Body).Decode(&path); err != nil {
		writeError(w, &tsdeverrors.Error{Kind: tsdeverrors.KindIPCFailure, Message: "malformed request body"})
		return
	}

	bodies, err := rt.coordinator.FileGroup(r.Context(), path)
	if err != nil {
		rt.log.Warn(err, "compile failed", "path", path)
		writeCompileError(w, err)
		return
	}

	for sourcePath := range bodies {
		if strings.Contains(sourcePath, "node_modules"+string(filepath.Separator)) {
			continue
		}
		if err := rt.watcher.AddPath(sourcePath); err != nil {
			rt.log.Warn(err, "failed to register watched path", "path", sourcePath)
		}
	}

	writeJSON(w, http.StatusOK, compileResponse{Filenames: bodies})
}

func (rt *Routes) handleFileRequired(w http.ResponseWriter, r *http.Request) {
	var paths []string
	if err := json.NewDecoder(r.Body).Decode(&paths); err != nil {
		writeError(w, &tsdeverrors.Error{Kind: tsdeverrors.KindIPCFailure, Message: "malformed request body"})
		return
	}

	for _, p := range paths {
		if strings.Contains(p, "node_modules"+string(filepath.Separator)) {
			continue
		}
		if err := rt.watcher.AddPath(p); err != nil {
			rt.log.Warn(err, "failed to register required path", "path", p)
		}
	}

	writeJSON(w, http.StatusOK, fileRequiredResponse{Status: "ok"})
}

func writeCompileError(w http.ResponseWriter, err error) {
	var te *tsdeverrors.Error
	if errors.As(err, &te) {
		writeError(w, te)
		return
	}
	writeError(w, &tsdeverrors.Error{Kind: tsdeverrors.KindCompile, Message: err.Error()})
}

func writeError(w http.ResponseWriter, e *tsdeverrors.Error) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Kind: e.Kind.String(), Message: e.Message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
