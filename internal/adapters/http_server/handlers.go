package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"sneaker_hub/internal/adapters/artifact"
	"sneaker_hub/internal/app"
	"sneaker_hub/internal/domain"
)

const invalidInputs = "Invalid inputs passed, please check your data."

type Handlers struct {
	Q         *app.QueryService
	C         *app.CommandService
	Images    domain.ArtifactStore
	MaxUpload int64

	validate *validator.Validate
}

func NewHandlers(q *app.QueryService, c *app.CommandService, images domain.ArtifactStore, maxUpload int64) *Handlers {
	if maxUpload <= 0 {
		maxUpload = 500000
	}
	return &Handlers{Q: q, C: c, Images: images, MaxUpload: maxUpload, validate: validator.New()}
}

// problem is an RFC 7807 body. Message repeats Detail for clients that read
// the plain {"message": ...} shape.
type problem struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Status  int    `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Message string `json:"message,omitempty"`
}

type createInput struct {
	Title       string `validate:"required"`
	Description string `validate:"min=5"`
	Address     string `validate:"required"`
	URL         string `validate:"required"`
}

type updateInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"min=5"`
}

func (s *Server) MountHandlers(h *Handlers, authn func(http.Handler) http.Handler) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/api/sneakers", func(r chi.Router) {
		r.Get("/{pid}", h.getByID)
		r.Get("/user/{uid}", h.getByOwner)
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/", h.create)
			r.Patch("/{pid}", h.update)
			r.Delete("/{pid}", h.remove)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Message: detail}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func statusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrGeocoding:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a service error. Only the caller facing message is sent.
func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	writeProblem(w, status, http.StatusText(status), domain.MessageOf(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func (h *Handlers) getByID(w http.ResponseWriter, r *http.Request) {
	l, err := h.Q.GetByID(r.Context(), chi.URLParam(r, "pid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, map[string]domain.Listing{"sneaker": l})
}

func (h *Handlers) getByOwner(w http.ResponseWriter, r *http.Request) {
	ls, err := h.Q.GetByOwner(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, map[string][]domain.Listing{"sneakers": ls})
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	// room for the text fields on top of the image
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload+64<<10)
	if err := r.ParseMultipartForm(h.MaxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeProblem(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "File too large.")
			return
		}
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", invalidInputs)
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := createInput{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Address:     strings.TrimSpace(r.FormValue("address")),
		URL:         strings.TrimSpace(r.FormValue("url")),
	}
	if err := h.validate.Struct(in); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", invalidInputs)
		return
	}

	file, hdr, err := r.FormFile("image")
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", invalidInputs)
		return
	}
	defer file.Close()
	if hdr.Size > h.MaxUpload {
		writeProblem(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "File too large.")
		return
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", invalidInputs)
		return
	}
	contentType, ext, err := artifact.DetectImage(head[:n])
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "Invalid mime type!")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeError(w, domain.Transient("Creating sneaker failed, please try again.", err))
		return
	}

	path, err := h.Images.Save(r.Context(), artifact.NewName(ext), contentType, file, hdr.Size)
	if err != nil {
		log.Error().Err(err).Msg("storing upload failed")
		writeError(w, domain.Transient("Creating sneaker failed, please try again.", err))
		return
	}

	l, err := h.C.Create(r.Context(), domain.NewListing{
		OwnerID:     CallerID(r.Context()),
		Title:       in.Title,
		Description: in.Description,
		Address:     in.Address,
		URL:         in.URL,
		ImagePath:   path,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]domain.Listing{"sneaker": l})
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	var in updateInput
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(&in); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", invalidInputs)
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := h.validate.Struct(in); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", invalidInputs)
		return
	}

	l, err := h.C.Update(r.Context(), CallerID(r.Context()), chi.URLParam(r, "pid"),
		domain.ListingPatch{Title: in.Title, Description: in.Description})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.Listing{"sneaker": l})
}

func (h *Handlers) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.C.Delete(r.Context(), CallerID(r.Context()), chi.URLParam(r, "pid")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted sneaker."})
}
