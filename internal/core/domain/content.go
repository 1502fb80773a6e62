package domain

import (
	"mime"
	"strings"
)

// MIME types the service recognises.
const (
	MIMETypePlainText = "text/plain"
	MIMETypeCSV       = "text/csv"
	MIMETypeHTML      = "text/html"
	MIMETypeXHTML     = "application/xhtml+xml"
	MIMETypeRTF       = "application/rtf"
	MIMETypeTextRTF   = "text/rtf"
	MIMETypePDF       = "application/pdf"
	MIMETypeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypeXLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMETypeMSWord    = "application/msword"
	MIMETypeMSExcel   = "application/vnd.ms-excel"
	MIMETypeMSPPT     = "application/vnd.ms-powerpoint"

	MIMETypeGoogleDoc    = "application/vnd.google-apps.document"
	MIMETypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MIMETypeGoogleSlides = "application/vnd.google-apps.presentation"
	MIMETypeGoogleFolder = "application/vnd.google-apps.folder"
)

// ContentKind is the closed set of formats the extractor dispatches on.
type ContentKind int

// Content kinds.
const (
	KindUnsupported ContentKind = iota
	KindPlainText
	KindCSV
	KindRTF
	KindHTML
	KindPDF
	KindDOCX
	KindXLSX
	// KindNativeExport is a provider-native document that must be exported
	// to text before extraction.
	KindNativeExport
	// KindLegacyOffice is a binary Office format that is listed but cannot
	// be extracted.
	KindLegacyOffice
)

var kindNames = map[ContentKind]string{
	KindUnsupported:  "unsupported",
	KindPlainText:    "plaintext",
	KindCSV:          "csv",
	KindRTF:          "rtf",
	KindHTML:         "html",
	KindPDF:          "pdf",
	KindDOCX:         "docx",
	KindXLSX:         "xlsx",
	KindNativeExport: "native-export",
	KindLegacyOffice: "legacy-office",
}

// String returns the kind name.
func (k ContentKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnsupported]
}

// ClassifyMIME maps a MIME type to its ContentKind. Parameters such as
// charset are ignored.
func ClassifyMIME(mimeType string) ContentKind {
	switch normaliseMIME(mimeType) {
	case MIMETypePlainText:
		return KindPlainText
	case MIMETypeCSV:
		return KindCSV
	case MIMETypeRTF, MIMETypeTextRTF:
		return KindRTF
	case MIMETypeHTML, MIMETypeXHTML:
		return KindHTML
	case MIMETypePDF:
		return KindPDF
	case MIMETypeDOCX:
		return KindDOCX
	case MIMETypeXLSX:
		return KindXLSX
	case MIMETypeGoogleDoc, MIMETypeGoogleSheet, MIMETypeGoogleSlides:
		return KindNativeExport
	case MIMETypeMSWord, MIMETypeMSExcel, MIMETypeMSPPT:
		return KindLegacyOffice
	default:
		return KindUnsupported
	}
}

// IsIndexableMIME reports whether files of this type are accepted for indexing.
func IsIndexableMIME(mimeType string) bool {
	return ClassifyMIME(mimeType) != KindUnsupported
}

// ExportMIMEType returns the text type a native document is exported as.
// The second result is false for anything that is not a native document.
func ExportMIMEType(mimeType string) (string, bool) {
	switch normaliseMIME(mimeType) {
	case MIMETypeGoogleDoc, MIMETypeGoogleSlides:
		return MIMETypePlainText, true
	case MIMETypeGoogleSheet:
		return MIMETypeCSV, true
	default:
		return "", false
	}
}

func normaliseMIME(mimeType string) string {
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
