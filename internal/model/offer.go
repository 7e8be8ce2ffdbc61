package model

// RawOffer is one posting as returned by the France Travail offers search
// endpoint. Only the fields the pipeline reads are decoded.
type RawOffer struct {
	ID                 string       `json:"id"`
	Title              string       `json:"intitule"`
	Description        string       `json:"description"`
	DateCreation       string       `json:"dateCreation"`
	DateActualisation  string       `json:"dateActualisation"`
	Place              *Place       `json:"lieuTravail"`
	ContractType       string       `json:"typeContrat"`
	ContractNature     string       `json:"natureContrat"`
	ExperienceRequired string       `json:"experienceExige"`
	ExperienceLabel    string       `json:"experienceLibelle"`
	Salary             *Salary      `json:"salaire"`
	CompanyField       string       `json:"secteurActiviteLibelle"`
	Competencies       []Competency `json:"competences"`
}

// Place is the lieuTravail object of an offer.
type Place struct {
	Label      string   `json:"libelle"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	PostalCode string   `json:"codePostal"`
	Commune    string   `json:"commune"`
}

// Salary is the salaire object of an offer. Label is free text such as
// "Mensuel de 3000.0 Euros à 4000.0 Euros sur 12 mois".
type Salary struct {
	Label   string `json:"libelle"`
	Comment string `json:"commentaire"`
}

// Competency is one entry of the competences list.
type Competency struct {
	Code        string `json:"code"`
	Label       string `json:"libelle"`
	Requirement string `json:"exigence"` // "E" required, "S" desired
}

// SearchResponse is the top-level body of the offers search endpoint.
type SearchResponse struct {
	Results []RawOffer `json:"resultats"`
}
