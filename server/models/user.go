package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Daskott/safecircle/server/auth"
	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
	"gorm.io/gorm"
)

var (
	allFieldsExceptPassword = []string{"id",
		"name",
		"address",
		"national_id",
		"phone",
		"email",
		"dob",
		"gender",
		"blood_group",
		"medical_conditions",
		"profile_image",
		"created_at",
		"updated_at",
	}

	// Maps the json keys accepted on profile updates to their columns
	UpdatableFields = map[string]string{
		"bloodGroup":        "blood_group",
		"medicalConditions": "medical_conditions",
		"profileImage":      "profile_image",
		"address":           "address",
		"nationalId":        "national_id",
		"dob":               "dob",
	}

	// Columns which must be unique across all users, in the order they are checked
	uniqueFields = []string{"email", "phone", "national_id"}

	fieldDisplayNames = map[string]string{"email": "email", "phone": "phone", "national_id": "nationalId"}

	ErrUserExists = errors.New("user already exists")
)

type User struct {
	BaseModel
	Name              string         `json:"name" gorm:"not null"`
	Address           string         `json:"address" gorm:"not null"`
	NationalID        string         `json:"nationalId" gorm:"not null;unique"`
	Phone             string         `json:"phone" gorm:"not null;unique"`
	Email             string         `json:"email" gorm:"not null;unique"`
	Dob               string         `json:"dob" gorm:"not null"`
	Gender            string         `json:"gender" gorm:"not null"`
	Password          string         `json:"-" gorm:"not null"`
	BloodGroup        string         `json:"bloodGroup"`
	MedicalConditions string         `json:"medicalConditions"`
	ProfileImage      string         `json:"profileImage"`
	ReportOptions     []ReportOption `json:"reportOptions,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	History           []HistoryEntry `json:"history,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// Update sets the profile fields in 'data'(keyed by column) & reloads the user
func (user *User) Update(data map[string]interface{}) error {
	columns := []string{}
	for _, column := range UpdatableFields {
		if _, ok := data[column]; ok {
			columns = append(columns, column)
		}
	}

	if len(columns) == 0 {
		return nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if nationalID, ok := data["national_id"]; ok {
			taken, err := valueTakenByAnotherUser(tx, "national_id", nationalID, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: nationalId is already registered", ErrUserExists)
			}
		}

		return tx.Model(&User{}).Where("id = ?", user.ID).Select(columns).Updates(data).Error
	})
	if err != nil {
		return uniqueViolationAsUserExists(err)
	}

	return db.Select(allFieldsExceptPassword).First(user, user.ID).Error
}

func FindUserBy(field string, value interface{}) (*User, error) {
	user := User{}
	err := db.Select(allFieldsExceptPassword).First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindUserCredentials returns the id & password hash of the user with 'email'
func FindUserCredentials(email string) (*User, error) {
	user := User{}
	err := db.Select("id", "password").First(&user, "email = ?", email).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// CreateUser hashes the user's password & stores the user along with
// the default report options
func CreateUser(user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash
	user.ReportOptions = DefaultReportOptions()

	err = db.Transaction(func(tx *gorm.DB) error {
		conflict, err := conflictingUniqueField(tx, user)
		if err != nil {
			return err
		}

		if conflict != "" {
			return fmt.Errorf("%w: %v is already registered", ErrUserExists, conflict)
		}

		return tx.Create(user).Error
	})
	if err != nil {
		user.ID = 0
		return uniqueViolationAsUserExists(err)
	}

	return nil
}

// DeleteUser removes the user along with everything the user owns
func DeleteUser(id interface{}) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&HistoryEntry{}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&ReportOption{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&User{}, id)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// conflictingUniqueField returns the (json) name of the first unique field
// already registered by another user, or "" if there is none
func conflictingUniqueField(tx *gorm.DB, user *User) (string, error) {
	values := map[string]string{
		"email":       user.Email,
		"phone":       user.Phone,
		"national_id": user.NationalID,
	}

	for _, column := range uniqueFields {
		taken, err := valueTakenByAnotherUser(tx, column, values[column], 0)
		if err != nil {
			return "", err
		}

		if taken {
			return fieldDisplayNames[column], nil
		}
	}

	return "", nil
}

func valueTakenByAnotherUser(tx *gorm.DB, column string, value interface{}, userID uint) (bool, error) {
	var count int64
	err := tx.Model(&User{}).
		Where(fmt.Sprintf("%v = ? AND id <> ?", column), value, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// uniqueViolationAsUserExists turns a failed unique constraint on the users table
// into ErrUserExists, naming the offending field
func uniqueViolationAsUserExists(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return err
	}

	// e.g. "UNIQUE constraint failed: users.email"
	message := sqliteErr.Error()
	for _, column := range uniqueFields {
		if strings.Contains(message, "users."+column) {
			return fmt.Errorf("%w: %v is already registered", ErrUserExists, fieldDisplayNames[column])
		}
	}

	return err
}
