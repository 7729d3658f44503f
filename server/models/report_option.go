package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm/clause"
)

var DefaultReportOptionNames = []string{
	"Threat",
	"Accident",
	"Medical Emergency",
	"Fire",
	"Natural Disaster",
}

// PhoneNumbers is an ordered list of phone numbers stored as a json array
type PhoneNumbers []string

func (numbers PhoneNumbers) Value() (driver.Value, error) {
	if numbers == nil {
		numbers = PhoneNumbers{}
	}

	bytes, err := json.Marshal(numbers)
	if err != nil {
		return nil, err
	}

	return string(bytes), nil
}

func (numbers *PhoneNumbers) Scan(value interface{}) error {
	var bytes []byte

	switch v := value.(type) {
	case nil:
		*numbers = PhoneNumbers{}
		return nil
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unable to scan %T into PhoneNumbers", value)
	}

	list := PhoneNumbers{}
	if err := json.Unmarshal(bytes, &list); err != nil {
		return err
	}
	*numbers = list

	return nil
}

// ReportOption is a named emergency situation, unique by name for a user
type ReportOption struct {
	BaseModel
	UserID    uint         `json:"-" gorm:"not null;uniqueIndex:idx_report_options_user_name"`
	Name      string       `json:"name" gorm:"not null;uniqueIndex:idx_report_options_user_name"`
	Contacts  PhoneNumbers `json:"contacts" gorm:"type:text;not null"`
	Procedure string       `json:"procedure"`
}

func DefaultReportOptions() []ReportOption {
	options := []ReportOption{}
	for _, name := range DefaultReportOptionNames {
		options = append(options, ReportOption{Name: name, Contacts: PhoneNumbers{}})
	}

	return options
}

// ReportOptionList returns all the user's report options, in the order they were added
func (user *User) ReportOptionList() ([]ReportOption, error) {
	options := []ReportOption{}
	err := db.Where("user_id = ?", user.ID).Order("id asc").Find(&options).Error
	if err != nil {
		return nil, err
	}

	return options, nil
}

// FindReportOption returns the user's report option called 'name'(case-sensitive)
func (user *User) FindReportOption(name string) (*ReportOption, error) {
	option := ReportOption{}
	err := db.Where("user_id = ? AND name = ?", user.ID, name).First(&option).Error
	if err != nil {
		return nil, err
	}

	return &option, nil
}

// UpsertReportOption replaces the contacts & procedure of the option called 'name',
// or adds a new option if the user has none by that name.
// It returns the user's full list of options.
func (user *User) UpsertReportOption(name string, contacts []string, procedure string) ([]ReportOption, error) {
	option := ReportOption{
		UserID:    user.ID,
		Name:      name,
		Contacts:  PhoneNumbers(contacts),
		Procedure: procedure,
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"contacts", "procedure", "updated_at"}),
	}).Create(&option).Error
	if err != nil {
		return nil, err
	}

	return user.ReportOptionList()
}
