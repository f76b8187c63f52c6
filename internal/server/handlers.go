package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"

	"github.com/deixis/shellgate"
	"github.com/deixis/shellgate/internal/logging"
	"github.com/deixis/shellgate/internal/pipeline"
	"github.com/deixis/shellgate/internal/report"
	"github.com/deixis/shellgate/internal/translate"
)

type executeRequest struct {
	Cmd *string `json:"cmd"`
}

type naturalLanguageRequest struct {
	Query *string `json:"query"`
}

type executeResponse struct {
	RunID      string      `json:"run_id"`
	Command    string      `json:"command"`
	ReturnCode int         `json:"return_code"`
	Output     string      `json:"output"`
	Error      string      `json:"error"`
	Success    bool        `json:"success"`
	Mode       report.Mode `json:"mode"`
}

type naturalLanguageResponse struct {
	RunID            string      `json:"run_id"`
	OriginalQuery    string      `json:"original_query"`
	ConvertedCommand string      `json:"converted_command"`
	Command          string      `json:"command"`
	ReturnCode       int         `json:"return_code"`
	Output           string      `json:"output"`
	Error            string      `json:"error"`
	Success          bool        `json:"success"`
	Mode             report.Mode `json:"mode"`
}

type errorResponse struct {
	Error         string      `json:"error"`
	OriginalQuery string      `json:"original_query,omitempty"`
	Mode          report.Mode `json:"mode,omitempty"`
}

type healthResponse struct {
	Status               string         `json:"status"`
	Version              string         `json:"version"`
	GoVersion            string         `json:"go_version"`
	WorkingDirectory     string         `json:"working_directory"`
	TranslatorConfigured bool           `json:"translator_configured"`
	Services             healthServices `json:"services"`
}

type healthServices struct {
	Translator      string `json:"translator"`
	CommandExecutor string `json:"command_executor"`
}

// handleExecute processes POST /execute.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Cmd == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: pipeline.Missing("cmd").Error()})
		return
	}

	run, err := s.Engine.Direct(r.Context(), *req.Cmd)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, executeResponse{
		RunID:      run.ID,
		Command:    run.Result.Command,
		ReturnCode: run.Result.ExitCode,
		Output:     run.Result.Output,
		Error:      run.Result.Error,
		Success:    run.Result.Success,
		Mode:       report.Manual,
	})
}

// handleNaturalLanguage processes POST /natural-language.
func (s *Server) handleNaturalLanguage(w http.ResponseWriter, r *http.Request) {
	var req naturalLanguageRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Query == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: pipeline.Missing("query").Error()})
		return
	}

	run, err := s.Engine.NaturalLanguage(r.Context(), *req.Query)
	if err != nil {
		s.writeError(w, err, report.NaturalLanguage)
		return
	}
	writeJSON(w, http.StatusOK, naturalLanguageResponse{
		RunID:            run.ID,
		OriginalQuery:    run.Query,
		ConvertedCommand: run.ConvertedCommand,
		Command:          run.Result.Command,
		ReturnCode:       run.Result.ExitCode,
		Output:           run.Result.Output,
		Error:            run.Result.Error,
		Success:          run.Result.Success,
		Mode:             report.NaturalLanguage,
	})
}

// handleHealth processes GET /health. It always reports healthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	wd := s.Workdir
	if wd == "" {
		wd, _ = os.Getwd()
	}
	configured := s.Engine.TranslatorConfigured()
	translator := "not_configured"
	if configured {
		translator = "configured"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:               "healthy",
		Version:              shellgate.Version,
		GoVersion:            runtime.Version(),
		WorkingDirectory:     wd,
		TranslatorConfigured: configured,
		Services: healthServices{
			Translator:      translator,
			CommandExecutor: "ready",
		},
	})
}

// handleRun processes GET /runs/{id}.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Engine.Inspect(r.PathValue("id"))
	if errors.Is(err, report.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// decode parses the JSON body into v, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("Invalid JSON body: %v", err),
		})
		return false
	}
	return true
}

// writeError maps a pipeline error to its HTTP response.
func (s *Server) writeError(w http.ResponseWriter, err error, mode report.Mode) {
	var (
		verr *pipeline.ValidationError
		terr *translate.Error
		rerr *pipeline.RejectedError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Reason})
	case errors.As(err, &terr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:         terr.Reason,
			OriginalQuery: terr.Query,
			Mode:          mode,
		})
	case errors.As(err, &rerr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:         rerr.Error(),
			OriginalQuery: rerr.Query,
			Mode:          mode,
		})
	default:
		logging.OrDiscard(s.Logger).Error("request_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: fmt.Sprintf("Server error: %v", err),
		})
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
