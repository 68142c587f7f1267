package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Daskott/phonebook/server/auth"
	"github.com/Daskott/phonebook/server/auth/key"
	"github.com/Daskott/phonebook/server/models"
	"github.com/Daskott/phonebook/server/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	formKeyRegex = regexp.MustCompile(`name="_formkey" value="([^"]+)"`)

	testKeyPairOnce sync.Once
	testKeyPair     *key.KeyPair
)

func init() {
	auth.HashCost = bcrypt.MinCost
}

func newTestKeyPair(t *testing.T) *key.KeyPair {
	testKeyPairOnce.Do(func() {
		var err error
		testKeyPair, err = key.GenerateKeyPair(1024)
		require.Nil(t, err)
	})

	return testKeyPair
}

func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	db, err := models.InitializeTestDb()
	require.Nil(t, err, "Should open test db")

	sessions := session.NewManager(session.NewMemoryStore(), time.Hour)
	srv, err := New(db, sessions, newTestKeyPair(t), Options{TokenTTL: time.Hour})
	require.Nil(t, err)

	testServer := httptest.NewServer(srv)
	t.Cleanup(testServer.Close)

	return testServer, db
}

// testClient is a browser: it keeps cookies and does not follow redirects.
type testClient struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func newTestClient(t *testing.T, server *httptest.Server) *testClient {
	jar, err := cookiejar.New(nil)
	require.Nil(t, err)

	return &testClient{
		t:      t,
		server: server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *testClient) get(path string) (*http.Response, string) {
	resp, err := c.client.Get(c.server.URL + path)
	require.Nil(c.t, err)

	return resp, readBody(c.t, resp)
}

func (c *testClient) post(path string, values url.Values) (*http.Response, string) {
	resp, err := c.client.PostForm(c.server.URL+path, values)
	require.Nil(c.t, err)

	return resp, readBody(c.t, resp)
}

// submit fills in the form key the way the rendered form would, then posts values.
func (c *testClient) submit(path string, values url.Values) (*http.Response, string) {
	values.Set(FORM_KEY_FIELD, c.formKey("/add"))
	return c.post(path, values)
}

func (c *testClient) formKey(path string) string {
	resp, body := c.get(path)
	require.Equal(c.t, http.StatusOK, resp.StatusCode, "Expected %v to render a form", path)

	match := formKeyRegex.FindStringSubmatch(body)
	require.Len(c.t, match, 2, "Expected a form key in %v", path)

	return match[1]
}

func (c *testClient) register(email string) {
	values := url.Values{
		"first_name": {"Jane"},
		"last_name":  {"Doe"},
		"email":      {email},
		"password":   {"password"},
	}
	values.Set(FORM_KEY_FIELD, c.formKey("/auth/register"))

	resp, _ := c.post("/auth/register", values)
	require.Equal(c.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(c.t, "/", resp.Header.Get("Location"))
}

func readBody(t *testing.T, resp *http.Response) string {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.Nil(t, err)

	return string(body)
}

func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, location, resp.Header.Get("Location"))
}

func findContact(t *testing.T, db *gorm.DB, firstName string) models.Contact {
	contact := models.Contact{}
	require.Nil(t, db.Where("first_name = ?", firstName).First(&contact).Error)

	return contact
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	var count int64
	require.Nil(t, db.Model(model).Count(&count).Error)

	return count
}

func TestUnauthenticatedRequestsRedirectToLogin(t *testing.T) {
	server, _ := newTestServer(t)
	c := newTestClient(t, server)

	for _, path := range []string{"/", "/index", "/add", "/edit/1", "/delete/1", "/edit_phones/1", "/add_phone/1", "/edit_phone/1/2", "/delete_phone/1/2"} {
		resp, _ := c.get(path)
		assertRedirect(t, resp, "/auth/login?next="+url.QueryEscape(path))
	}
}

func TestRegisterLoginAndLogout(t *testing.T) {
	server, db := newTestServer(t)
	c := newTestClient(t, server)

	c.register("jane@example.com")

	user, err := models.FindUserBy(db, "email", "jane@example.com")
	require.Nil(t, err)
	assert.Equal(t, "Jane", user.FirstName)

	resp, body := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "jane@example.com")
	assert.Contains(t, body, "Welcome Jane", "Expected flash to show on the next page")

	_, body = c.get("/")
	assert.NotContains(t, body, "Welcome Jane", "Expected flash to show only once")

	resp, _ = c.get("/auth/logout")
	assertRedirect(t, resp, "/auth/login")

	resp, _ = c.get("/")
	assertRedirect(t, resp, "/auth/login?next=%2F")

	// Wrong password
	values := url.Values{"email": {"jane@example.com"}, "password": {"wrong"}}
	values.Set(FORM_KEY_FIELD, c.formKey("/auth/login"))
	resp, body = c.post("/auth/login?next=%2Fadd", values)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Invalid email or password")

	// Right password lands on next
	values = url.Values{"email": {"jane@example.com"}, "password": {"password"}}
	values.Set(FORM_KEY_FIELD, c.formKey("/auth/login"))
	resp, _ = c.post("/auth/login?next=%2Fadd", values)
	assertRedirect(t, resp, "/add")

	resp, _ = c.get("/add")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginIgnoresExternalNext(t *testing.T) {
	server, _ := newTestServer(t)
	c := newTestClient(t, server)
	c.register("jane@example.com")

	values := url.Values{"email": {"jane@example.com"}, "password": {"password"}}
	values.Set(FORM_KEY_FIELD, c.formKey("/auth/login"))
	resp, _ := c.post("/auth/login?next="+url.QueryEscape("//evil.example.com"), values)
	assertRedirect(t, resp, "/")
}

func TestRegisterRejectsDuplicateEmailAndBadInput(t *testing.T) {
	server, db := newTestServer(t)
	c := newTestClient(t, server)
	c.register("jane@example.com")

	other := newTestClient(t, server)
	values := url.Values{
		"first_name": {"Janet"},
		"last_name":  {"Doe"},
		"email":      {"jane@example.com"},
		"password":   {"password"},
	}
	values.Set(FORM_KEY_FIELD, other.formKey("/auth/register"))
	resp, body := other.post("/auth/register", values)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Email is already registered")

	values = url.Values{
		"first_name": {""},
		"last_name":  {"Doe"},
		"email":      {"not-an-email"},
		"password":   {"has space"},
	}
	values.Set(FORM_KEY_FIELD, other.formKey("/auth/register"))
	resp, body = other.post("/auth/register", values)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Enter a value")
	assert.Contains(t, body, "Enter a valid email address")
	assert.Contains(t, body, "Enter a password without spaces")

	assert.EqualValues(t, 1, countRows(t, db, &models.User{}))
}

func TestContactLifecycle(t *testing.T) {
	server, db := newTestServer(t)
	c := newTestClient(t, server)
	c.register("jane@example.com")

	// A blank field rejects the form & nothing is written
	resp, body := c.submit("/add", url.Values{"first_name": {"  "}, "last_name": {"Lovelace"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Enter a value")
	assert.Contains(t, body, `value="Lovelace"`, "Expected submitted values to be kept")
	assert.EqualValues(t, 0, countRows(t, db, &models.Contact{}))

	resp, _ = c.submit("/add", url.Values{"first_name": {" Ada "}, "last_name": {"Lovelace"}})
	assertRedirect(t, resp, "/")

	contact := findContact(t, db, "Ada")
	assert.Equal(t, "jane@example.com", contact.OwnerEmail)
	assert.Equal(t, "Lovelace", contact.LastName)

	_, body = c.get("/")
	assert.Contains(t, body, "Added Ada Lovelace")
	assert.Contains(t, body, "Lovelace")

	// Edit pre-fills & updates
	editPath := fmt.Sprintf("/edit/%d", contact.ID)
	_, body = c.get(editPath)
	assert.Contains(t, body, `value="Ada"`)

	resp, _ = c.submit(editPath, url.Values{"first_name": {"Augusta"}, "last_name": {"King"}})
	assertRedirect(t, resp, "/")

	updated := findContact(t, db, "Augusta")
	assert.Equal(t, contact.ID, updated.ID)
	assert.Equal(t, "King", updated.LastName)
	assert.Equal(t, "jane@example.com", updated.OwnerEmail)

	// Delete cascades to phone numbers
	require.Nil(t, updated.AddPhoneNumber(db, &models.PhoneNumber{Number: "555-0100"}))

	resp, _ = c.get(fmt.Sprintf("/delete/%d", contact.ID))
	assertRedirect(t, resp, "/")
	assert.EqualValues(t, 0, countRows(t, db, &models.Contact{}))
	assert.EqualValues(t, 0, countRows(t, db, &models.PhoneNumber{}))

	// Deleting again is a no-op
	resp, _ = c.get(fmt.Sprintf("/delete/%d", contact.ID))
	assertRedirect(t, resp, "/")

	// Missing contact redirects home
	resp, _ = c.get(editPath)
	assertRedirect(t, resp, "/")
}

func TestPhoneNumberLifecycle(t *testing.T) {
	server, db := newTestServer(t)
	c := newTestClient(t, server)
	c.register("jane@example.com")

	resp, _ := c.submit("/add", url.Values{"first_name": {"Ada"}, "last_name": {"Lovelace"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	contact := findContact(t, db, "Ada")
	phonesPage := fmt.Sprintf("/edit_phones/%d", contact.ID)

	resp, body := c.submit(fmt.Sprintf("/add_phone/%d", contact.ID), url.Values{"number": {""}, "phone_type": {"Home"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Enter a value")

	resp, _ = c.submit(fmt.Sprintf("/add_phone/%d", contact.ID), url.Values{"number": {"555-0100"}, "phone_type": {"Home"}})
	assertRedirect(t, resp, phonesPage)

	phone := models.PhoneNumber{}
	require.Nil(t, db.Where("contact_id = ?", contact.ID).First(&phone).Error)
	assert.Equal(t, "555-0100", phone.Number)

	resp, body = c.get(phonesPage)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "555-0100")
	assert.Contains(t, body, "Added 555-0100")

	editPath := fmt.Sprintf("/edit_phone/%d/%d", contact.ID, phone.ID)
	resp, _ = c.submit(editPath, url.Values{"number": {"555-0199"}, "phone_type": {"Work"}})
	assertRedirect(t, resp, phonesPage)

	require.Nil(t, db.First(&phone, phone.ID).Error)
	assert.Equal(t, "555-0199", phone.Number)
	assert.Equal(t, "Work", phone.PhoneType)
	assert.Equal(t, contact.ID, phone.ContactID)

	// A phone id paired with the wrong contact is not found
	resp, _ = c.submit("/add", url.Values{"first_name": {"Grace"}, "last_name": {"Hopper"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	other := findContact(t, db, "Grace")

	resp, _ = c.get(fmt.Sprintf("/edit_phone/%d/%d", other.ID, phone.ID))
	assertRedirect(t, resp, fmt.Sprintf("/edit_phones/%d", other.ID))

	resp, _ = c.get(fmt.Sprintf("/delete_phone/%d/%d", other.ID, phone.ID))
	assertRedirect(t, resp, fmt.Sprintf("/edit_phones/%d", other.ID))
	assert.EqualValues(t, 1, countRows(t, db, &models.PhoneNumber{}))

	resp, _ = c.get(fmt.Sprintf("/delete_phone/%d/%d", contact.ID, phone.ID))
	assertRedirect(t, resp, phonesPage)
	assert.EqualValues(t, 0, countRows(t, db, &models.PhoneNumber{}))
}

func TestContactsAreScopedToOwner(t *testing.T) {
	server, db := newTestServer(t)

	jane := newTestClient(t, server)
	jane.register("jane@example.com")
	resp, _ := jane.submit("/add", url.Values{"first_name": {"Ada"}, "last_name": {"Lovelace"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	contact := findContact(t, db, "Ada")
	require.Nil(t, contact.AddPhoneNumber(db, &models.PhoneNumber{Number: "555-0100"}))

	john := newTestClient(t, server)
	john.register("john@example.com")

	_, body := john.get("/")
	assert.NotContains(t, body, "Lovelace")

	resp, _ = john.get(fmt.Sprintf("/edit/%d", contact.ID))
	assertRedirect(t, resp, "/")

	resp, _ = john.submit(fmt.Sprintf("/edit/%d", contact.ID), url.Values{"first_name": {"Mallory"}, "last_name": {"X"}})
	assertRedirect(t, resp, "/")

	resp, _ = john.get(fmt.Sprintf("/edit_phones/%d", contact.ID))
	assertRedirect(t, resp, "/")

	resp, _ = john.submit(fmt.Sprintf("/add_phone/%d", contact.ID), url.Values{"number": {"555-0666"}})
	assertRedirect(t, resp, "/")

	resp, _ = john.get(fmt.Sprintf("/delete/%d", contact.ID))
	assertRedirect(t, resp, "/")

	unchanged := findContact(t, db, "Ada")
	assert.Equal(t, "Lovelace", unchanged.LastName)
	assert.Equal(t, "jane@example.com", unchanged.OwnerEmail)
	assert.EqualValues(t, 1, countRows(t, db, &models.PhoneNumber{}))
}

func TestFormKeyIsRequired(t *testing.T) {
	server, db := newTestServer(t)
	c := newTestClient(t, server)
	c.register("jane@example.com")

	resp, body := c.post("/add", url.Values{"first_name": {"Ada"}, "last_name": {"Lovelace"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Your form has expired")

	resp, _ = c.post("/add", url.Values{"first_name": {"Ada"}, "last_name": {"Lovelace"}, FORM_KEY_FIELD: {"forged"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.EqualValues(t, 0, countRows(t, db, &models.Contact{}))
}

func TestMalformedIdsAreNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	c := newTestClient(t, server)
	c.register("jane@example.com")

	for _, path := range []string{"/edit/abc", "/edit/-1", "/edit_phone/1/x", "/edit/99999999999999999999", "/nowhere"} {
		resp, body := c.get(path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Contains(t, body, "does not exist", path)
	}
}

func TestBearerTokenIdentifiesUser(t *testing.T) {
	server, _ := newTestServer(t)
	newTestClient(t, server).register("jane@example.com")

	token, err := auth.EncodeJWT(auth.NewClaims("jane@example.com", "Jane", "Doe", time.Hour), newTestKeyPair(t))
	require.Nil(t, err)

	client := newTestClient(t, server)
	req, err := http.NewRequest(http.MethodGet, server.URL+"/", nil)
	require.Nil(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.client.Do(req)
	require.Nil(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "jane@example.com")

	// A valid token for an account that does not exist is rejected
	token, err = auth.EncodeJWT(auth.NewClaims("ghost@example.com", "Ghost", "", time.Hour), newTestKeyPair(t))
	require.Nil(t, err)

	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = client.client.Do(req)
	require.Nil(t, err)
	readBody(t, resp)
	assertRedirect(t, resp, "/auth/login?next=%2F")
}

func TestJWKSAndHealth(t *testing.T) {
	server, _ := newTestServer(t)
	c := newTestClient(t, server)

	resp, body := c.get("/.well-known/jwks.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))

	jwks := struct {
		Keys []map[string]interface{} `json:"keys"`
	}{}
	require.Nil(t, json.Unmarshal([]byte(body), &jwks))
	require.Len(t, jwks.Keys, 1)
	assert.Equal(t, key.DEFAULT_KID, jwks.Keys[0]["kid"])
	assert.Equal(t, "RSA", jwks.Keys[0]["kty"])

	resp, body = c.get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"success":true`)
}

func TestContactsArePaged(t *testing.T) {
	server, db := newTestServer(t)
	c := newTestClient(t, server)
	c.register("jane@example.com")

	for i := 0; i < models.DEFAULT_PAGE_SIZE+1; i++ {
		contact := &models.Contact{FirstName: fmt.Sprintf("First%03d", i), LastName: fmt.Sprintf("Last%03d", i)}
		require.Nil(t, models.CreateContact(db, contact, "jane@example.com"))
	}

	_, body := c.get("/")
	assert.Equal(t, models.DEFAULT_PAGE_SIZE, strings.Count(body, `<tr class="contact">`))
	assert.Contains(t, body, `href="/?page=2"`)

	_, body = c.get("/?page=2")
	assert.Equal(t, 1, strings.Count(body, `<tr class="contact">`))
	assert.Contains(t, body, "Last050")
}
