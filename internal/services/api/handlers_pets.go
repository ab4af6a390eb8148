package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
	petsapp "github.com/pawtrail/pawtrail/internal/services/pets/app"
	petsstorage "github.com/pawtrail/pawtrail/internal/services/pets/storage"
)

// maxPetFormBytes bounds an entire pet form submission, photos included.
const maxPetFormBytes = 64 << 20

func (h *handlers) handleCreatePet(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	input, uploads, err := petFormInput(r)
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := h.pets.CreatePet(r.Context(), userID, input, uploads)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPetJSON(created))
}

func (h *handlers) handleGetPet(w http.ResponseWriter, r *http.Request) {
	petID, err := pathID(r, "petID")
	if err != nil {
		writeError(w, err)
		return
	}
	pet, err := h.pets.GetPet(r.Context(), petID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPetJSON(pet))
}

func (h *handlers) handleListPets(w http.ResponseWriter, r *http.Request) {
	filter, err := petListFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	pets, err := h.pets.ListPets(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]petJSON, 0, len(pets))
	for _, p := range pets {
		out = append(out, toPetJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type updatePetRequest struct {
	Name                string `json:"name"`
	Species             string `json:"species"`
	Breed               string `json:"breed"`
	Age                 *int   `json:"age"`
	Color               string `json:"color"`
	Gender              string `json:"gender"`
	DistinctiveFeatures string `json:"distinctive_features"`
	Status              string `json:"status"`
	LastSeenLocation    string `json:"last_seen_location"`
	CoordX              string `json:"coord_x"`
	CoordY              string `json:"coord_y"`
	LostDate            string `json:"lost_date"`
}

func (h *handlers) handleUpdatePet(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	petID, err := pathID(r, "petID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req updatePetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	input := petsapp.PetInput{
		Name:                req.Name,
		Species:             req.Species,
		Breed:               req.Breed,
		Age:                 req.Age,
		Color:               req.Color,
		Gender:              req.Gender,
		DistinctiveFeatures: req.DistinctiveFeatures,
		Status:              petsstorage.Status(req.Status),
		LastSeenLocation:    req.LastSeenLocation,
		CoordX:              req.CoordX,
		CoordY:              req.CoordY,
	}
	if req.LostDate != "" {
		lostDate, err := time.Parse(time.RFC3339, req.LostDate)
		if err != nil {
			writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "lost_date must be RFC 3339"))
			return
		}
		input.LostDate = &lostDate
	}
	updated, err := h.pets.UpdatePet(r.Context(), userID, petID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPetJSON(petsapp.PetWithPhotos{Pet: updated}))
}

func (h *handlers) handleDeletePet(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	petID, err := pathID(r, "petID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.pets.DeletePet(r.Context(), userID, petID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *handlers) handleAddPhotos(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	petID, err := pathID(r, "petID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := r.ParseMultipartForm(maxPetFormBytes); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed multipart form", err))
		return
	}
	uploads, err := formPhotos(r.MultipartForm)
	if err != nil {
		writeError(w, err)
		return
	}
	photos, err := h.pets.AddPhotos(r.Context(), userID, petID, uploads)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]photoJSON, 0, len(photos))
	for _, ph := range photos {
		out = append(out, photoJSON{ID: ph.ID, PhotoURL: ph.PhotoURL, IsPrimary: ph.IsPrimary, CreatedAt: ph.CreatedAt})
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *handlers) handleListMatches(w http.ResponseWriter, r *http.Request) {
	petID, err := pathID(r, "petID")
	if err != nil {
		writeError(w, err)
		return
	}
	matches, err := h.pets.ListMatches(r.Context(), petID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]matchJSON, 0, len(matches))
	for _, m := range matches {
		out = append(out, toMatchJSON(m))
	}
	writeJSON(w, http.StatusOK, out)
}

type matchResultJSON struct {
	Match matchJSON `json:"match"`
	Pet   petJSON   `json:"pet"`
}

func (h *handlers) handleFindMatches(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	petID, err := pathID(r, "petID")
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := h.pets.FindMatches(r.Context(), userID, petID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]matchResultJSON, 0, len(results))
	for _, res := range results {
		out = append(out, matchResultJSON{
			Match: toMatchJSON(res.Match),
			Pet:   toPetJSON(petsapp.PetWithPhotos{Pet: res.LostPet}),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// petFormInput parses the multipart pet submission into its field set and
// photo payloads.
func petFormInput(r *http.Request) (petsapp.PetInput, [][]byte, error) {
	if err := r.ParseMultipartForm(maxPetFormBytes); err != nil {
		return petsapp.PetInput{}, nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed multipart form", err)
	}
	field := r.FormValue
	input := petsapp.PetInput{
		Name:                field("name"),
		Species:             field("species"),
		Breed:               field("breed"),
		Color:               field("color"),
		Gender:              field("gender"),
		DistinctiveFeatures: field("distinctive_features"),
		Status:              petsstorage.Status(field("status")),
		LastSeenLocation:    field("last_seen_location"),
		CoordX:              field("coord_x"),
		CoordY:              field("coord_y"),
	}
	if raw := field("age"); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil || age < 0 {
			return petsapp.PetInput{}, nil, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("invalid age %q", raw))
		}
		input.Age = &age
	}
	if raw := field("lost_date"); raw != "" {
		lostDate, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return petsapp.PetInput{}, nil, apperrors.New(apperrors.CodeInvalidArgument, "lost_date must be RFC 3339")
		}
		input.LostDate = &lostDate
	}
	uploads, err := formPhotos(r.MultipartForm)
	if err != nil {
		return petsapp.PetInput{}, nil, err
	}
	return input, uploads, nil
}

// formPhotos reads every uploaded "photos" part into memory.
func formPhotos(form *multipart.Form) ([][]byte, error) {
	if form == nil {
		return nil, nil
	}
	var uploads [][]byte
	for _, header := range form.File["photos"] {
		data, err := readFormFile(header)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, data)
	}
	return uploads, nil
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "unreadable photo upload", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "unreadable photo upload", err)
	}
	return data, nil
}

// petListFilter builds the listing filter from query parameters.
func petListFilter(r *http.Request) (petsstorage.ListFilter, error) {
	q := r.URL.Query()
	filter := petsstorage.ListFilter{
		Species: q.Get("species"),
	}
	if raw := q.Get("status"); raw != "" {
		status := petsstorage.Status(raw)
		if !status.Valid() {
			return petsstorage.ListFilter{}, apperrors.New(apperrors.CodePetInvalidStatus, fmt.Sprintf("unknown status %q", raw))
		}
		filter.Status = status
	}
	if raw := q.Get("owner_id"); raw != "" {
		ownerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ownerID <= 0 {
			return petsstorage.ListFilter{}, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("invalid owner_id %q", raw))
		}
		filter.OwnerID = ownerID
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return petsstorage.ListFilter{}, err
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return petsstorage.ListFilter{}, err
	}
	filter.Offset = offset
	filter.Limit = limit
	return filter, nil
}
