package server

import (
	"errors"
	"fmt"

	"github.com/Daskott/phonebook/server/models"
	"gorm.io/gorm"
)

const contactsPath = "/"

func phonesPath(contactID uint) string {
	return fmt.Sprintf("/edit_phones/%d", contactID)
}

// ---------------------------------------------------------------------------------//
// Contacts
// --------------------------------------------------------------------------------//

func listContacts(rc *RequestContext) (Result, error) {
	contacts, paging, err := models.FetchContacts(rc.DB, rc.Identity, pageParam(rc.Request))
	if err != nil {
		return nil, err
	}

	return Render{Data: map[string]interface{}{
		"Title":    "Contacts",
		"Contacts": contacts,
		"Paging":   paging,
	}}, nil
}

func addContact(rc *RequestContext) (Result, error) {
	form := contactSchema.Process(rc.Request, rc.Session, nil)
	if !form.Accepted() {
		return Render{Data: form.View("Add contact", rc.Request.URL.Path, contactsPath)}, nil
	}

	contact := models.Contact{
		FirstName: form.Values["first_name"],
		LastName:  form.Values["last_name"],
	}

	if err := models.CreateContact(rc.DB, &contact, rc.Identity); err != nil {
		return nil, err
	}

	rc.Session.SetFlash(fmt.Sprintf("Added %v %v", contact.FirstName, contact.LastName))
	return Redirect{Path: contactsPath}, nil
}

func editContact(rc *RequestContext) (Result, error) {
	contact, err := models.FindContact(rc.DB, rc.ID("contact_id"), rc.Identity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Redirect{Path: contactsPath}, nil
	}

	if err != nil {
		return nil, err
	}

	form := contactSchema.Process(rc.Request, rc.Session, contact.FormValues())
	if !form.Accepted() {
		return Render{Data: form.View("Edit contact", rc.Request.URL.Path, contactsPath)}, nil
	}

	if err := contact.Update(rc.DB, form.Data()); err != nil {
		return nil, err
	}

	rc.Session.SetFlash(fmt.Sprintf("Updated %v %v", contact.FirstName, contact.LastName))
	return Redirect{Path: contactsPath}, nil
}

func deleteContact(rc *RequestContext) (Result, error) {
	deleted, err := models.DeleteContact(rc.DB, rc.ID("contact_id"), rc.Identity)
	if err != nil {
		return nil, err
	}

	if deleted {
		rc.Session.SetFlash("Contact deleted")
	}

	return Redirect{Path: contactsPath}, nil
}

// ---------------------------------------------------------------------------------//
// Phone numbers
// --------------------------------------------------------------------------------//

func listPhones(rc *RequestContext) (Result, error) {
	contact, err := models.FindContact(rc.DB, rc.ID("contact_id"), rc.Identity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Redirect{Path: contactsPath}, nil
	}

	if err != nil {
		return nil, err
	}

	if err := contact.LoadPhoneNumbers(rc.DB); err != nil {
		return nil, err
	}

	return Render{Data: map[string]interface{}{
		"Title":   fmt.Sprintf("Phone numbers of %v %v", contact.FirstName, contact.LastName),
		"Contact": contact,
	}}, nil
}

func addPhone(rc *RequestContext) (Result, error) {
	contact, err := models.FindContact(rc.DB, rc.ID("contact_id"), rc.Identity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Redirect{Path: contactsPath}, nil
	}

	if err != nil {
		return nil, err
	}

	form := phoneSchema.Process(rc.Request, rc.Session, nil)
	if !form.Accepted() {
		title := fmt.Sprintf("Add phone number for %v %v", contact.FirstName, contact.LastName)
		return Render{Data: form.View(title, rc.Request.URL.Path, phonesPath(contact.ID))}, nil
	}

	phone := models.PhoneNumber{
		Number:    form.Values["number"],
		PhoneType: form.Values["phone_type"],
	}

	if err := contact.AddPhoneNumber(rc.DB, &phone); err != nil {
		return nil, err
	}

	rc.Session.SetFlash(fmt.Sprintf("Added %v", phone.Number))
	return Redirect{Path: phonesPath(contact.ID)}, nil
}

func editPhone(rc *RequestContext) (Result, error) {
	contactID := rc.ID("contact_id")

	phone, err := models.FindPhoneNumber(rc.DB, contactID, rc.ID("phone_id"), rc.Identity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Redirect{Path: phonesPath(contactID)}, nil
	}

	if err != nil {
		return nil, err
	}

	form := phoneSchema.Process(rc.Request, rc.Session, phone.FormValues())
	if !form.Accepted() {
		return Render{Data: form.View("Edit phone number", rc.Request.URL.Path, phonesPath(contactID))}, nil
	}

	if err := phone.Update(rc.DB, form.Data()); err != nil {
		return nil, err
	}

	rc.Session.SetFlash(fmt.Sprintf("Updated %v", phone.Number))
	return Redirect{Path: phonesPath(contactID)}, nil
}

func deletePhone(rc *RequestContext) (Result, error) {
	contactID := rc.ID("contact_id")

	deleted, err := models.DeletePhoneNumber(rc.DB, contactID, rc.ID("phone_id"), rc.Identity)
	if err != nil {
		return nil, err
	}

	if deleted {
		rc.Session.SetFlash("Phone number deleted")
	}

	return Redirect{Path: phonesPath(contactID)}, nil
}
