package models

import "gorm.io/gorm"

// OwnedBy restricts a contacts query to rows owned by email.
func OwnedBy(email string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("contacts.owner_email = ?", email)
	}
}

// PhonesOfContact restricts a phone_numbers query to the phones of contactID,
// provided that contact is owned by email.
func PhonesOfContact(contactID uint, email string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("INNER JOIN contacts ON contacts.id = phone_numbers.contact_id AND contacts.owner_email = ?", email).
			Where("phone_numbers.contact_id = ?", contactID)
	}
}

// PhoneOfContact matches a single phone only when both ids line up and
// the parent contact is owned by email. A phone id is never matched alone.
func PhoneOfContact(contactID, phoneID uint, email string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return PhonesOfContact(contactID, email)(db).Where("phone_numbers.id = ?", phoneID)
	}
}
