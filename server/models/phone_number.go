package models

import (
	"errors"

	"gorm.io/gorm"
)

var phoneUpdatableFields = []string{"number", "phone_type"}

type PhoneNumber struct {
	BaseModel
	ContactID uint   `json:"contact_id" gorm:"not null;index"`
	Number    string `json:"number" validate:"required" gorm:"not null"`
	PhoneType string `json:"phone_type"`
}

func (phone *PhoneNumber) FormValues() map[string]string {
	return map[string]string{
		"number":     phone.Number,
		"phone_type": phone.PhoneType,
	}
}

// Update writes the user editable columns in data, keyed by primary key and parent contact.
func (phone *PhoneNumber) Update(db *gorm.DB, data map[string]interface{}) error {
	data = filterFields(data, phoneUpdatableFields)
	if len(data) == 0 {
		return nil
	}

	err := db.Model(&PhoneNumber{}).
		Where("id = ? AND contact_id = ?", phone.ID, phone.ContactID).
		Updates(data).Error
	if err != nil {
		return err
	}

	return db.First(phone, phone.ID).Error
}

// FindPhoneNumber returns gorm.ErrRecordNotFound unless phoneID belongs to
// contactID and that contact is owned by ownerEmail.
func FindPhoneNumber(db *gorm.DB, contactID, phoneID uint, ownerEmail string) (*PhoneNumber, error) {
	phone := PhoneNumber{}
	err := db.Scopes(PhoneOfContact(contactID, phoneID, ownerEmail)).
		Select("phone_numbers.*").
		First(&phone).Error
	if err != nil {
		return nil, err
	}

	return &phone, nil
}

// DeletePhoneNumber is a no-op when the (contactID, phoneID) pair does not
// match a phone of a contact owned by ownerEmail.
func DeletePhoneNumber(db *gorm.DB, contactID, phoneID uint, ownerEmail string) (bool, error) {
	phone, err := FindPhoneNumber(db, contactID, phoneID, ownerEmail)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	res := db.Where("contact_id = ?", contactID).Delete(&PhoneNumber{}, phone.ID)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}
