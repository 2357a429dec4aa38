package model

// DiagnosisSource tells which stage of the chain produced a diagnosis
type DiagnosisSource string

const (
	SourceKnowledgeBase DiagnosisSource = "knowledge_base"
	SourceCache         DiagnosisSource = "cache"
	SourceAI            DiagnosisSource = "ai"
)

// Diagnosis is the structured result schema shared by all sources
type Diagnosis struct {
	PlantInfo       PlantInfo     `json:"plantInfo"`
	DiseaseInfo     DiseaseInfo   `json:"diseaseInfo"`
	TreatmentInfo   TreatmentInfo `json:"treatmentInfo"`
	ConfidenceScore int           `json:"confidenceScore"` // 0-100
	ProductKeywords []string      `json:"productKeywords"`
}

// PlantInfo identifies the diagnosed plant
type PlantInfo struct {
	CommonName     string `json:"commonName"`
	ScientificName string `json:"scientificName,omitempty"`
}

// DiseaseInfo describes the diagnosed condition
type DiseaseInfo struct {
	Name           string   `json:"name"`
	ScientificName string   `json:"scientificName,omitempty"`
	Description    string   `json:"description,omitempty"`
	Symptoms       []string `json:"symptoms"`
	Causes         string   `json:"causes,omitempty"`
	Severity       string   `json:"severity,omitempty"`
	IsHealthy      bool     `json:"isHealthy"`
}

// TreatmentInfo lists recommended actions
type TreatmentInfo struct {
	Immediate  []string `json:"immediate,omitempty"`
	Organic    []string `json:"organic,omitempty"`
	Chemical   []string `json:"chemical,omitempty"`
	Prevention []string `json:"prevention,omitempty"`
}

// DiagnoseRequest is the body of POST /api/v1/diagnose
type DiagnoseRequest struct {
	Description   string  `json:"description"`
	PlantType     *string `json:"plant_type,omitempty"`
	ImageBase64   string  `json:"image_base64,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
	ImageMimeType string  `json:"image_mime_type,omitempty"`
	SkipCache     bool    `json:"skip_cache,omitempty"`
	Language      string  `json:"language,omitempty"`

	// Image holds decoded image bytes; filled by the handler from ImageBase64
	Image []byte `json:"-"`
}

// HasImage reports whether the request carries an image in any form
func (r *DiagnoseRequest) HasImage() bool {
	return len(r.Image) > 0 || r.ImageBase64 != "" || r.ImageURL != ""
}

// DiagnoseResponse is returned by the diagnosis endpoints
type DiagnoseResponse struct {
	Source             DiagnosisSource     `json:"source"`
	Diagnosis          *Diagnosis          `json:"diagnosis"`
	KnowledgeBaseMatch *DiseaseMatchResult `json:"knowledge_base_match,omitempty"`
	CacheMatch         *CacheMatchResult   `json:"cache_match,omitempty"`
	Debug              map[string]any      `json:"debug,omitempty"`
	Took               int64               `json:"took_ms"`
}

// CleanupResponse reports the result of an expired-cache cleanup
type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}
