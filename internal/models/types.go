package models

// Chunk is a passage produced by the chunker, with its pre-trim span in the source text
type Chunk struct {
	Content string
	Start   int
	End     int
	ChunkID int
}

// Passage is a scored retrieval candidate; it only lives for one retrieval call
type Passage struct {
	Text              string  `json:"text"`
	VectorScore       float64 `json:"vector_score"`
	KeywordScore      float64 `json:"keyword_score"`
	BlendedScore      float64 `json:"blended_score"`
	CandidatePosition int     `json:"-"`
}

// UploadResult is returned by a successful upload
type UploadResult struct {
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	PassageCount int    `json:"passage_count"`
}

// PromptResponse is the answer to a question together with its evidence
type PromptResponse struct {
	Query    string   `json:"-"`
	Answer   string   `json:"answer"`
	Evidence []string `json:"evidence"`
}

// DocumentInfo describes a stored document
type DocumentInfo struct {
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	Format       string `json:"format"`
	PassageCount int    `json:"passage_count"`
}
