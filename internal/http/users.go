package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/auth"
	"github.com/mrlokans/goodreads/internal/media"
)

const (
	MsgRegistered     = "Your account has been created. You can now log in."
	MsgProfileUpdated = "Your profile has been updated successfully"
)

var accountFields = []string{"username", "first_name", "last_name", "email"}

// UsersController handles sign-up and the caller's own profile.
type UsersController struct {
	authService *auth.Service
	media       *media.Store
	pages       *Pages
}

func NewUsersController(authService *auth.Service, store *media.Store, pages *Pages) *UsersController {
	return &UsersController{
		authService: authService,
		media:       store,
		pages:       pages,
	}
}

func (uc *UsersController) RegisterPage(c *gin.Context) {
	uc.renderRegister(c, http.StatusOK, newForm())
}

// Register creates the account and sends the visitor to the login page.
func (uc *UsersController) Register(c *gin.Context) {
	form := formFromRequest(c, accountFields...)

	picture, ok := uc.saveProfilePicture(c, form)
	if !ok {
		return
	}
	if len(form.Errors) > 0 {
		uc.renderRegister(c, http.StatusOK, form)
		return
	}

	_, err := uc.authService.Register(auth.RegistrationInput{
		Username:       form.Values["username"],
		FirstName:      form.Values["first_name"],
		LastName:       form.Values["last_name"],
		Email:          form.Values["email"],
		Password:       c.PostForm("password"),
		ProfilePicture: picture,
	})
	if err != nil {
		discardUpload(uc.media, picture)
		if form.addErrors(err) {
			uc.renderRegister(c, http.StatusOK, form)
			return
		}
		uc.pages.Error(c, err, "register")
		return
	}

	uc.pages.Flash(c, auth.FlashSuccess, MsgRegistered)
	c.Redirect(http.StatusFound, auth.LoginPath)
}

// ProfilePage shows the logged-in user's account.
func (uc *UsersController) ProfilePage(c *gin.Context) {
	user := auth.GetUser(c)
	if user == nil {
		uc.pages.Error(c, apperr.LoginRequired(), "profile")
		return
	}

	uc.pages.Render(c, http.StatusOK, "profile.html", gin.H{
		"Title": "Profile",
		"User":  user,
	})
}

func (uc *UsersController) ProfileUpdatePage(c *gin.Context) {
	user := auth.GetUser(c)
	if user == nil {
		uc.pages.Error(c, apperr.LoginRequired(), "profile update")
		return
	}

	form := newForm()
	form.Values["username"] = user.Username
	form.Values["first_name"] = user.FirstName
	form.Values["last_name"] = user.LastName
	form.Values["email"] = user.Email
	uc.renderProfileUpdate(c, http.StatusOK, form)
}

// ProfileUpdate saves the caller's account fields and optional new picture.
func (uc *UsersController) ProfileUpdate(c *gin.Context) {
	user := auth.GetUser(c)
	if user == nil {
		uc.pages.Error(c, apperr.LoginRequired(), "profile update")
		return
	}

	form := formFromRequest(c, accountFields...)
	picture, ok := uc.saveProfilePicture(c, form)
	if !ok {
		return
	}
	if len(form.Errors) > 0 {
		uc.renderProfileUpdate(c, http.StatusOK, form)
		return
	}

	in := auth.ProfileInput{
		Username:  form.Values["username"],
		FirstName: form.Values["first_name"],
		LastName:  form.Values["last_name"],
		Email:     form.Values["email"],
	}
	if picture != "" {
		in.ProfilePicture = &picture
	}

	previous := user.ProfilePicture
	if _, err := uc.authService.UpdateProfile(user.ID, in); err != nil {
		discardUpload(uc.media, picture)
		if form.addErrors(err) {
			uc.renderProfileUpdate(c, http.StatusOK, form)
			return
		}
		uc.pages.Error(c, err, "profile update")
		return
	}
	if picture != "" && previous != "" {
		discardUpload(uc.media, previous)
	}

	uc.pages.Flash(c, auth.FlashSuccess, MsgProfileUpdated)
	c.Redirect(http.StatusFound, "/users/profile")
}

// saveProfilePicture stores an uploaded picture, if any. Invalid images are
// reported on form; ok is false once an error page has been sent.
func (uc *UsersController) saveProfilePicture(c *gin.Context, form *formState) (relPath string, ok bool) {
	fh, err := c.FormFile("profile_picture")
	if err != nil || uc.media == nil {
		return "", true
	}

	relPath, err = uc.media.SaveUpload("profile_picture", media.ProfilePictures, fh)
	if err != nil {
		if form.addErrors(err) {
			return "", true
		}
		uc.pages.Error(c, err, "profile picture upload")
		return "", false
	}
	return relPath, true
}

func (uc *UsersController) renderRegister(c *gin.Context, status int, form *formState) {
	uc.pages.Render(c, status, "register.html", gin.H{
		"Title":  "Register",
		"Values": form.Values,
		"Errors": form.Errors,
	})
}

func (uc *UsersController) renderProfileUpdate(c *gin.Context, status int, form *formState) {
	uc.pages.Render(c, status, "profile_update.html", gin.H{
		"Title":  "Update profile",
		"Values": form.Values,
		"Errors": form.Errors,
	})
}
