package vault

import (
	"encoding/binary"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"
)

// Kind tags. Every encoding begins with one of these so the plaintext of one
// kind never decodes as another.
const (
	tagFolderName  byte = 0x01
	tagFileInfo    byte = 0x02
	tagFileContent byte = 0x03
)

// nameLenSize is the width of the FileInfo name length prefix.
const nameLenSize = 8

// Kind is the closed set of payloads a Vault will encrypt. Adding a kind
// means adding it here and giving it a case in encode and decode.
type Kind interface {
	FolderName | FileInfo | FileContent
}

// FolderName is the user-visible name of a folder.
type FolderName struct {
	Name string
}

// FileInfo describes a stored file: its display name and MIME type.
type FileInfo struct {
	Name     string
	MimeType string
}

// FileContent is the raw body of a file.
type FileContent struct {
	Data []byte
}

// kindName returns a stable human name for K, used in redacted output and
// decode errors.
func kindName[K Kind]() string {
	var zero K
	switch any(zero).(type) {
	case FolderName:
		return "FolderName"
	case FileInfo:
		return "FileInfo"
	case FileContent:
		return "FileContent"
	}
	panic("vault: unreachable kind")
}

func encode[K Kind](v K) []byte {
	switch v := any(v).(type) {
	case FolderName:
		out := make([]byte, 0, 1+len(v.Name))
		out = append(out, tagFolderName)
		return append(out, v.Name...)
	case FileInfo:
		out := make([]byte, 1+nameLenSize, 1+nameLenSize+len(v.Name)+len(v.MimeType))
		out[0] = tagFileInfo
		binary.LittleEndian.PutUint64(out[1:], uint64(len(v.Name)))
		out = append(out, v.Name...)
		return append(out, v.MimeType...)
	case FileContent:
		out := make([]byte, 0, 1+len(v.Data))
		out = append(out, tagFileContent)
		return append(out, v.Data...)
	}
	panic("vault: unreachable kind")
}

func decode[K Kind](b []byte) (K, error) {
	var zero K
	var (
		v   any
		err error
	)
	switch any(zero).(type) {
	case FolderName:
		v, err = decodeFolderName(b)
	case FileInfo:
		v, err = decodeFileInfo(b)
	case FileContent:
		v, err = decodeFileContent(b)
	default:
		panic("vault: unreachable kind")
	}
	if err != nil {
		return zero, err
	}
	return v.(K), nil
}

func checkTag(kind string, b []byte, want byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, &DecodeError{Kind: kind, Reason: "unexpected end of bytes"}
	}
	if b[0] != want {
		return nil, &DecodeError{Kind: kind, Reason: "wrong kind tag"}
	}
	return b[1:], nil
}

func decodeFolderName(b []byte) (FolderName, error) {
	body, err := checkTag("FolderName", b, tagFolderName)
	if err != nil {
		return FolderName{}, err
	}
	if !utf8.Valid(body) {
		return FolderName{}, &DecodeError{Kind: "FolderName", Reason: "name is not valid UTF-8"}
	}
	return FolderName{Name: string(body)}, nil
}

func decodeFileInfo(b []byte) (FileInfo, error) {
	body, err := checkTag("FileInfo", b, tagFileInfo)
	if err != nil {
		return FileInfo{}, err
	}
	if len(body) < nameLenSize {
		return FileInfo{}, &DecodeError{Kind: "FileInfo", Reason: "unexpected end of bytes"}
	}
	nameLen := binary.LittleEndian.Uint64(body)
	body = body[nameLenSize:]
	if nameLen > uint64(len(body)) {
		return FileInfo{}, &DecodeError{Kind: "FileInfo", Reason: "unexpected end of bytes"}
	}
	name, mime := body[:nameLen], body[nameLen:]
	if !utf8.Valid(name) {
		return FileInfo{}, &DecodeError{Kind: "FileInfo", Reason: "name is not valid UTF-8"}
	}
	if !utf8.Valid(mime) {
		return FileInfo{}, &DecodeError{Kind: "FileInfo", Reason: "mime type is not valid UTF-8"}
	}
	return FileInfo{Name: string(name), MimeType: string(mime)}, nil
}

func decodeFileContent(b []byte) (FileContent, error) {
	body, err := checkTag("FileContent", b, tagFileContent)
	if err != nil {
		return FileContent{}, err
	}
	data := make([]byte, len(body))
	copy(data, body)
	return FileContent{Data: data}, nil
}

// DetectMimeType guesses a MIME type from the filename extension, falling
// back to sniffing the first bytes of content.
func DetectMimeType(filename string, content []byte) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".json":
		return "application/json"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".zip":
		return "application/zip"
	case ".csv":
		return "text/csv"
	case ".md":
		return "text/markdown"
	default:
		return http.DetectContentType(content)
	}
}

// NewFileInfo builds a FileInfo for filename, detecting its MIME type.
func NewFileInfo(filename string, content []byte) FileInfo {
	return FileInfo{Name: filename, MimeType: DetectMimeType(filename, content)}
}
