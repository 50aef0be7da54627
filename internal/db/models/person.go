package models

// Person holds the identity attributes of a human owning at most one User account.
type Person struct {
	Base
	// FirstName is the given name.
	FirstName string `gorm:"size:100" json:"firstName"`
	// LastName is the family name.
	LastName string `gorm:"size:100" json:"lastName"`
	// Email is unique across all people.
	Email string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	// Phone is optional.
	Phone string `gorm:"size:50" json:"phone,omitempty"`
}

// TableName specifies the database table name for the Person model.
func (Person) TableName() string {
	return "people"
}
