package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Type string

const (
	TypePublic     Type = "public"
	TypeEducation  Type = "education"
	TypeCommercial Type = "commercial"
	TypeOther      Type = "other"
)

func (t Type) Valid() bool {
	switch t {
	case TypePublic, TypeEducation, TypeCommercial, TypeOther:
		return true
	default:
		return false
	}
}

// Customer is a counterparty organization. Name and RegNo are unique.
type Customer struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Name          string       `gorm:"not null;uniqueIndex" json:"name"`
	RegNo         string       `gorm:"column:reg_no;not null;uniqueIndex" json:"reg_no"`
	Type          Type         `gorm:"type:text;not null" json:"type"`
	CEOName       string       `gorm:"column:ceo_name" json:"ceo_name,omitempty"`
	BizType       string       `json:"biz_type,omitempty"`
	BizItem       string       `json:"biz_item,omitempty"`
	FinanceDept   string       `json:"finance_dept,omitempty"`
	ManagerName   string       `json:"manager_name,omitempty"`
	Phone         string       `json:"phone,omitempty"`
	Email         string       `json:"email,omitempty"`
	BankName      string       `json:"bank_name,omitempty"`
	AccountNo     string       `json:"account_no,omitempty"`
	AccountHolder string       `json:"account_holder,omitempty"`
	ZipCode       string       `json:"zip_code,omitempty"`
	Address       string       `json:"address,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }
