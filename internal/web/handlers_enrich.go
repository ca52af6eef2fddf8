package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/loadsheet/internal/core"
	"github.com/JonMunkholm/loadsheet/internal/table"
)

// facetForm is the body of a facet join. Multipart requests carry the same
// fields as form values plus the facets sheet in "file".
type facetForm struct {
	Source       core.FacetSource `json:"source"`
	FacetsColumn string           `json:"facetsColumn"`
	OutColumn    string           `json:"outColumn"`
	SlotColumn   string           `json:"slotColumn"`
}

// handleJoinFacets joins facets from the sheet itself (JSON body) or from an
// uploaded facets sheet (multipart form).
func (s *Server) handleJoinFacets(w http.ResponseWriter, r *http.Request) {
	var (
		form   facetForm
		upload *table.Table
		err    error
	)
	if isMultipart(r) {
		upload, err = s.optionalUpload(w, r)
		if err != nil {
			fail(w, r, err)
			return
		}
		form = facetForm{
			Source:       core.FacetSource(r.FormValue("source")),
			FacetsColumn: r.FormValue("facetsColumn"),
			OutColumn:    r.FormValue("outColumn"),
			SlotColumn:   r.FormValue("slotColumn"),
		}
	} else if err := decodeJSON(r, &form); err != nil {
		fail(w, r, err)
		return
	}

	view, err := s.service.JoinFacets(r.Context(), sessionID(r), core.FacetRequest{
		Source:           form.Source,
		FacetsColumn:     form.FacetsColumn,
		OutColumn:        form.OutColumn,
		Upload:           upload,
		UploadSlotColumn: form.SlotColumn,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleFacetRowsCSV(matched bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ext, err := s.service.FacetRows(sessionID(r), matched)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeCSV(w, r, ext)
	}
}

// handleBeginPhase opens the next mapping phase.
func (s *Server) handleBeginPhase(w http.ResponseWriter, r *http.Request) {
	phase, err := core.ParsePhase(chi.URLParam(r, "phase"))
	if err != nil {
		fail(w, r, err)
		return
	}
	got, err := s.service.AdvancePhase(r.Context(), sessionID(r), phase)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"phase": got.String()})
}

func (s *Server) handleGetUnits(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.UnitMappings(sessionID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSetUnits(w http.ResponseWriter, r *http.Request) {
	var overrides map[string]core.UnitMapping
	if err := decodeJSON(r, &overrides); err != nil {
		fail(w, r, err)
		return
	}
	view, err := s.service.SetUnitMappings(r.Context(), sessionID(r), overrides)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetEnums(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.EnumMappings(sessionID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSetEnums(w http.ResponseWriter, r *http.Request) {
	var overrides map[string]core.EnumKeys
	if err := decodeJSON(r, &overrides); err != nil {
		fail(w, r, err)
		return
	}
	view, err := s.service.SetEnumMappings(r.Context(), sessionID(r), overrides)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetFacetNames(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.FacetNameMappings(sessionID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSetFacetNames(w http.ResponseWriter, r *http.Request) {
	var overrides map[string]string
	if err := decodeJSON(r, &overrides); err != nil {
		fail(w, r, err)
		return
	}
	view, err := s.service.SetFacetNameMappings(r.Context(), sessionID(r), overrides)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Finalize(r.Context(), sessionID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleExpandedCSV(w http.ResponseWriter, r *http.Request) {
	ext, err := s.service.ExpandedRows(sessionID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCSV(w, r, ext)
}

// deviceForm is the body of a device metadata join.
type deviceForm struct {
	Mode                 core.DeviceMetaMode `json:"mode"`
	DeviceColumn         string              `json:"deviceColumn"`
	MechanicalTypeColumn string              `json:"mechanicalTypeColumn"`
	LocationColumn       string              `json:"locationColumn"`
	AreaColumn           string              `json:"areaColumn"`
}

func (s *Server) handleJoinDeviceMeta(w http.ResponseWriter, r *http.Request) {
	var (
		form   deviceForm
		upload *table.Table
		err    error
	)
	if isMultipart(r) {
		upload, err = s.optionalUpload(w, r)
		if err != nil {
			fail(w, r, err)
			return
		}
		form = deviceForm{
			Mode:                 core.DeviceMetaMode(r.FormValue("mode")),
			DeviceColumn:         r.FormValue("deviceColumn"),
			MechanicalTypeColumn: r.FormValue("mechanicalTypeColumn"),
			LocationColumn:       r.FormValue("locationColumn"),
			AreaColumn:           r.FormValue("areaColumn"),
		}
	} else if err := decodeJSON(r, &form); err != nil {
		fail(w, r, err)
		return
	}

	view, err := s.service.JoinDeviceMeta(r.Context(), sessionID(r), core.DeviceMetaRequest{
		Mode:                 form.Mode,
		Upload:               upload,
		DeviceColumn:         form.DeviceColumn,
		MechanicalTypeColumn: form.MechanicalTypeColumn,
		LocationColumn:       form.LocationColumn,
		AreaColumn:           form.AreaColumn,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeviceRowsCSV(matched bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ext, err := s.service.DeviceRows(sessionID(r), matched)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeCSV(w, r, ext)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ext, err := s.service.Export(r.Context(), sessionID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCSV(w, r, ext)
}
