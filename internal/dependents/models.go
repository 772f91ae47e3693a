// Package dependents holds the dependent records owned by employees, their
// document paths, and the approval flag independent of the owning user's.
package dependents

import "time"

// Dependent belongs to exactly one user; the owner is fixed at creation and
// never reassigned by updates.
type Dependent struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	BirthDate    time.Time `json:"birthDate"`
	Relationship string    `json:"relationship"`
	CPF          *string   `json:"cpf,omitempty"`
	Status       bool      `json:"status"`

	CertidaoNascimentoOuRGCPF     *string `json:"certidaoNascimentoOuRGCPF,omitempty"`
	ComprovanteCasamentoOuUniao   *string `json:"comprovanteCasamentoOuUniao,omitempty"`
	DocumentoAdocao               *string `json:"documentoAdocao,omitempty"`
	ComprovanteMatriculaFaculdade *string `json:"comprovanteMatriculaFaculdade,omitempty"`
	LaudoMedicoFilhosDeficientes  *string `json:"laudoMedicoFilhosDeficientes,omitempty"`

	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpdateInput carries the mutable fields; nil means "leave as is". The owner
// id is deliberately absent.
type UpdateInput struct {
	Name         *string
	BirthDate    *time.Time
	Relationship *string
	CPF          *string
}

func (in UpdateInput) Empty() bool {
	return in.Name == nil && in.BirthDate == nil && in.Relationship == nil && in.CPF == nil
}
