package models

// Chunk is a bounded-size segment of a source document. Chunks are
// immutable once produced; Position is the splitter's insertion order
// within the source file and links a chunk to its vector: vector i in a
// user's index always corresponds to chunk i in the lookup.
type Chunk struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Position int    `json:"position"`
}

// UploadFile is one named raw payload from an upload batch.
type UploadFile struct {
	Filename string
	Content  []byte
}
