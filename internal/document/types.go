package document

import "time"

// Kind はアップロードされたドキュメントの種別です。
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindText Kind = "text"
)

// Document はアップロード済みドキュメントのメタデータです。
type Document struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	StoredName   string    `json:"storedName"`
	Kind         Kind      `json:"kind"`
	ContentType  string    `json:"contentType"`
	SizeBytes    int64     `json:"sizeBytes"`
	Pages        int       `json:"pages,omitempty"`
	ChunkCount   int       `json:"chunkCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Chunk はクイズ生成の単位となるテキスト断片です。
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}
