package api

type AnalogyRequest struct {
	Model  string `json:"model,omitempty"`
	A      string `json:"a"`
	B      string `json:"b"`
	C      string `json:"c"`
	Metric string `json:"metric,omitempty"`
}

type AnalogyResponse struct {
	ID        string  `json:"id"`
	Object    string  `json:"object"`
	CreatedAt int64   `json:"created_at"`
	Model     string  `json:"model,omitempty"`
	A         string  `json:"a"`
	B         string  `json:"b"`
	C         string  `json:"c"`
	Metric    string  `json:"metric"`
	Word      string  `json:"word"`
	Distance  float64 `json:"distance"`
}

type Neighbor struct {
	Word     string  `json:"word"`
	Distance float64 `json:"distance"`
}

type NeighborsResponse struct {
	Model     string     `json:"model,omitempty"`
	Word      string     `json:"word"`
	Neighbors []Neighbor `json:"neighbors"`
}

type VocabSizeResponse struct {
	Model string `json:"model,omitempty"`
	Size  int    `json:"size"`
	Dim   int    `json:"dim"`
}

type ModelList struct {
	Object string   `json:"object"`
	Data   []string `json:"data"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
}
