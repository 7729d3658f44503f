package models

import (
	"time"

	"gorm.io/gorm"
)

// HistoryEntry records a single alert sent to 'PhoneNumber'. Entries are never modified.
type HistoryEntry struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	UserID      uint      `json:"-" gorm:"not null;index"`
	Type        string    `json:"type" gorm:"not null"`
	PhoneNumber string    `json:"phoneNumber" gorm:"not null"`
	Procedure   string    `json:"procedure"`
	Timestamp   time.Time `json:"timestamp" gorm:"not null"`
}

// HistoryEntries returns the user's alert history, most recent first
func (user *User) HistoryEntries() ([]HistoryEntry, error) {
	return historyEntries(db, user.ID)
}

// AppendHistoryEntry places 'entry' at the head of the user's history & returns the full history.
// The user is re-checked within the same transaction, so an entry is never stored for a
// user that was deleted in the meantime.
func (user *User) AppendHistoryEntry(entry *HistoryEntry) ([]HistoryEntry, error) {
	var history []HistoryEntry

	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Select("id").First(&User{}, user.ID).Error
		if err != nil {
			return err
		}

		entry.ID = 0
		entry.UserID = user.ID
		if entry.Timestamp.IsZero() {
			entry.Timestamp = time.Now()
		}

		err = tx.Create(entry).Error
		if err != nil {
			return err
		}

		history, err = historyEntries(tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return history, nil
}

// DeleteHistoryEntry removes the user's entry with 'entryID' if it exists
// & returns what's left of the user's history
func (user *User) DeleteHistoryEntry(entryID interface{}) ([]HistoryEntry, error) {
	err := db.Where("user_id = ? AND id = ?", user.ID, entryID).Delete(&HistoryEntry{}).Error
	if err != nil {
		return nil, err
	}

	return user.HistoryEntries()
}

func historyEntries(tx *gorm.DB, userID uint) ([]HistoryEntry, error) {
	history := []HistoryEntry{}

	// ids grow with every insert, so they double as the insertion order
	err := tx.Where("user_id = ?", userID).Order("id desc").Find(&history).Error
	if err != nil {
		return nil, err
	}

	return history, nil
}
