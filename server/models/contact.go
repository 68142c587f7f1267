package models

import (
	"errors"

	"gorm.io/gorm"
)

var contactUpdatableFields = []string{"first_name", "last_name"}

type Contact struct {
	BaseModel
	FirstName    string        `json:"first_name" validate:"required" gorm:"not null"`
	LastName     string        `json:"last_name" validate:"required" gorm:"not null"`
	OwnerEmail   string        `json:"-" gorm:"not null;index"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// FormValues returns the user editable fields of the contact keyed by column name.
func (contact *Contact) FormValues() map[string]string {
	return map[string]string{
		"first_name": contact.FirstName,
		"last_name":  contact.LastName,
	}
}

// Update writes the user editable columns in data. The id and owner are never touched.
func (contact *Contact) Update(db *gorm.DB, data map[string]interface{}) error {
	data = filterFields(data, contactUpdatableFields)
	if len(data) == 0 {
		return nil
	}

	err := db.Model(&Contact{}).
		Where("id = ? AND owner_email = ?", contact.ID, contact.OwnerEmail).
		Updates(data).Error
	if err != nil {
		return err
	}

	return db.First(contact, contact.ID).Error
}

func (contact *Contact) AddPhoneNumber(db *gorm.DB, phone *PhoneNumber) error {
	phone.ID = 0
	phone.ContactID = contact.ID
	return db.Create(phone).Error
}

func (contact *Contact) LoadPhoneNumbers(db *gorm.DB) error {
	contact.PhoneNumbers = []PhoneNumber{}
	return db.Scopes(PhonesOfContact(contact.ID, contact.OwnerEmail)).
		Select("phone_numbers.*").
		Order("phone_numbers.id").
		Find(&contact.PhoneNumbers).Error
}

// CreateContact inserts contact as owned by ownerEmail.
func CreateContact(db *gorm.DB, contact *Contact, ownerEmail string) error {
	contact.ID = 0
	contact.OwnerEmail = ownerEmail
	return db.Create(contact).Error
}

// FindContact returns gorm.ErrRecordNotFound when the contact does not
// exist or is owned by someone else.
func FindContact(db *gorm.DB, id uint, ownerEmail string) (*Contact, error) {
	contact := Contact{}
	err := db.Scopes(OwnedBy(ownerEmail)).First(&contact, "contacts.id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &contact, nil
}

func FetchContacts(db *gorm.DB, ownerEmail string, page int) ([]Contact, *Paging, error) {
	var total int64
	contacts := []Contact{}

	err := db.Model(&Contact{}).Scopes(OwnedBy(ownerEmail)).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.Scopes(OwnedBy(ownerEmail), paginate(page, DEFAULT_PAGE_SIZE)).
		Order("contacts.last_name, contacts.first_name, contacts.id").
		Find(&contacts).Error
	if err != nil {
		return nil, nil, err
	}

	return contacts, newPaging(int64(page), DEFAULT_PAGE_SIZE, total), nil
}

// DeleteContact removes the contact and every phone number it owns. Deleting a
// missing or foreign contact is a no-op; the returned bool reports whether a row went away.
func DeleteContact(db *gorm.DB, id uint, ownerEmail string) (bool, error) {
	contact, err := FindContact(db, id, ownerEmail)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	err = db.Where("contact_id = ?", contact.ID).Delete(&PhoneNumber{}).Error
	if err != nil {
		return false, err
	}

	res := db.Delete(&Contact{}, contact.ID)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}
