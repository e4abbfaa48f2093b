package models

// Bank is an entry of the Brazilian bank catalog (COMPE code).
type Bank struct {
	Code     string `json:"code"`
	ISPB     string `json:"ispb,omitempty"`
	Name     string `json:"name"`
	FullName string `json:"full_name,omitempty"`
}
