package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/output"
	"github.com/dshills/pyreview/internal/review"
)

// PDFFilename is the download name of the PDF report.
const PDFFilename = "code_review.pdf"

type indexData struct {
	Error string
	Code  string
	MaxKB int
}

type errorData struct {
	Status  int
	Title   string
	Message string
}

// reportFormats maps download suffixes to output formats.
var reportFormats = map[string]string{
	".json":  "json",
	".sarif": "sarif",
	".patch": "patch",
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, http.StatusOK, indexData{})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	// Pasted text is URL-encoded in form bodies, so allow for expansion.
	limit := int64(s.opts.MaxBytes)*3 + 64<<10
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	sub, code, err := s.readSubmission(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = &intake.OversizeError{Limit: s.opts.MaxBytes, Size: int(tooLarge.Limit), Truncated: true}
		}
		if intake.IsValidationError(err) {
			status := validationStatus(err)
			s.logger.Debug("rejected submission", "status", status, "error", err)
			data := indexData{Error: err.Error()}
			if status != http.StatusRequestEntityTooLarge {
				data.Code = code
			}
			s.renderIndex(w, status, data)
			return
		}
		s.renderError(w, http.StatusBadRequest, "Bad request", err.Error())
		return
	}

	report, ok := s.store.Lookup(sub)
	if ok {
		s.logger.Debug("reusing report", "id", report.ID)
	} else {
		report, err = s.reviewer.Run(r.Context(), sub)
		if err != nil {
			s.logger.Warn("review aborted", "error", err)
			s.renderError(w, http.StatusServiceUnavailable, "Review aborted", err.Error())
			return
		}
		s.store.Put(report)
	}

	s.writeRendered(w, r, report, "html", "")
}

// readSubmission parses the form. An uploaded file takes precedence over
// pasted text. The pasted text is returned for re-rendering the form.
func (s *Server) readSubmission(r *http.Request) (intake.Submission, string, error) {
	opts := intake.Options{MaxBytes: s.opts.MaxBytes, Now: s.opts.Now}

	err := r.ParseMultipartForm(int64(s.opts.MaxBytes) + 64<<10)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		return intake.Submission{}, "", err
	}
	code := r.FormValue("code")

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		// An empty chosen file is rejected rather than silently replaced by
		// the pasted text.
		if header.Filename != "" {
			sub, err := intake.FromUpload(header.Filename, file, opts)
			return sub, code, err
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return intake.Submission{}, code, fmt.Errorf("reading upload: %w", err)
	}

	sub, err := intake.New(code, intake.OriginPaste, "", opts)
	return sub, code, err
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	report, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		s.renderError(w, http.StatusNotFound, "Report not found",
			"This report has expired or never existed. Submit the code again to regenerate it.")
		return
	}
	s.writeRendered(w, r, report, "pdf", PDFFilename)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	format := "html"
	id := name
	for suffix, f := range reportFormats {
		if strings.HasSuffix(name, suffix) {
			format = f
			id = strings.TrimSuffix(name, suffix)
			break
		}
	}
	report, ok := s.store.Get(id)
	if !ok {
		s.renderError(w, http.StatusNotFound, "Report not found",
			"This report has expired or never existed. Submit the code again to regenerate it.")
		return
	}
	attachment := ""
	if format == "patch" {
		attachment = report.Input.Name + ".patch"
	}
	s.writeRendered(w, r, report, format, attachment)
}

// writeRendered renders the whole report before writing any of it, so a
// render failure still gets an error status.
func (s *Server) writeRendered(w http.ResponseWriter, r *http.Request, report *review.Report, format, attachment string) {
	var buf bytes.Buffer
	if err := output.Render(r.Context(), &buf, report, format, s.opts.Render); err != nil {
		s.logger.Error("render failed", "id", report.ID, "format", format, "error", err)
		s.renderError(w, http.StatusInternalServerError, "Report could not be generated", err.Error())
		return
	}
	h := w.Header()
	h.Set("Content-Type", output.ContentType(format))
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	if attachment != "" {
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": attachment}))
	}
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) renderIndex(w http.ResponseWriter, status int, data indexData) {
	data.MaxKB = s.opts.MaxBytes / 1024
	s.renderPage(w, status, "index.html.tmpl", data)
}

func (s *Server) renderError(w http.ResponseWriter, status int, title, message string) {
	s.renderPage(w, status, "error.html.tmpl", errorData{Status: status, Title: title, Message: message})
}

func (s *Server) renderPage(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template failed", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func validationStatus(err error) int {
	var oversize *intake.OversizeError
	if errors.As(err, &oversize) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
