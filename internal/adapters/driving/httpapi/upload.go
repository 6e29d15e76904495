package httpapi

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
)

// Upload metadata keys.
const (
	metaFilename    = "filename"
	metaContentType = "content_type"
)

// handleUploadFile accepts a multipart form with a file field plus
// optional title and collection_name fields.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if s.svc.Normalisers == nil {
		writeError(w, errors.New("file upload is not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, domain.ValidationErrorf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files only

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, domain.ValidationErrorf("form field %q is required", "file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		writeError(w, domain.ValidationErrorf("reading upload: %v", err))
		return
	}
	if int64(len(data)) > s.maxUpload {
		writeError(w, domain.ValidationErrorf("file exceeds %d bytes", s.maxUpload))
		return
	}
	text, err := decodeText(data)
	if err != nil {
		writeError(w, domain.ValidationErrorf("%s: %v", header.Filename, err))
		return
	}

	mimeType := uploadMIME(header)
	metadata := map[string]any{
		metaFilename:    header.Filename,
		metaContentType: mimeType,
	}
	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		metadata[domain.PayloadTitle] = title
	}

	res, err := s.svc.Normalisers.Normalise(r.Context(), &domain.RawDocument{
		URI:      header.Filename,
		MIMEType: mimeType,
		Content:  []byte(text),
		Metadata: metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	doc := res.Document
	s.upload(w, r, domain.DocumentInput{
		Content:  doc.Content,
		Title:    doc.Title,
		Metadata: doc.Metadata,
	}, r.FormValue("collection_name"))
}

// uploadMIME prefers the part's declared type unless it is the generic
// binary type browsers send for unknown files.
func uploadMIME(header *multipart.FileHeader) string {
	declared := header.Header.Get("Content-Type")
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = declared[:i]
	}
	declared = strings.TrimSpace(strings.ToLower(declared))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if guessed := normalisers.MIMEFromPath(header.Filename); guessed != "" {
		return guessed
	}
	return "text/plain"
}

// decodeText returns data as UTF-8. Legacy Korean uploads in CP949 are
// transcoded; anything else that is not valid UTF-8 is rejected.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := korean.EUCKR.NewDecoder().Bytes(data)
	if err != nil || strings.ContainsRune(string(decoded), utf8.RuneError) {
		return "", errors.New("file must be UTF-8 or CP949 encoded text")
	}
	return string(decoded), nil
}
