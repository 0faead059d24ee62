package models

// DiseaseResponse is the answer of POST /predict-disease: the most probable
// class and its probability as a percentage.
type DiseaseResponse struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}
