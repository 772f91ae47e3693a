// Package users holds the employee identity records and their credential
// lifecycle (status approval, password change, forgot/reset).
package users

import "time"

// User is an employee identity record. Password and reset-token fields never
// leave the process in JSON form.
type User struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Matricula         *string    `json:"matricula,omitempty"`
	CPF               string     `json:"cpf"`
	RG                *string    `json:"rg,omitempty"`
	Vinculo           *string    `json:"vinculo,omitempty"`
	Lotacao           *string    `json:"lotacao,omitempty"`
	Endereco          *string    `json:"endereco,omitempty"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	Password          string     `json:"-"`
	Photo             *string    `json:"photo,omitempty"`
	BirthDay          *time.Time `json:"birthDay,omitempty"`
	Status            bool       `json:"status"`
	FirstAccess       bool       `json:"firstAccess"`
	ResetToken        *string    `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// UpdateInput carries the mutable profile fields; nil means "leave as is".
type UpdateInput struct {
	Name      *string
	Matricula *string
	RG        *string
	Vinculo   *string
	Lotacao   *string
	Endereco  *string
	Email     *string
	Phone     *string
	BirthDay  *time.Time
	Photo     *string
}

// Empty reports whether the update carries no field at all.
func (in UpdateInput) Empty() bool {
	return in.Name == nil && in.Matricula == nil && in.RG == nil &&
		in.Vinculo == nil && in.Lotacao == nil && in.Endereco == nil &&
		in.Email == nil && in.Phone == nil && in.BirthDay == nil && in.Photo == nil
}
