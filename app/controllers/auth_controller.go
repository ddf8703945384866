package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/app/repository"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/env"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/mail"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/session"
)

func HandleAuthLogin(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		fm := fiber.Map{
			"type": "error",
		}

		// notice: in production you should not inform the user
		// with detailed messages about login failures
		userRepo := repository.GetGlobalFactory().GetUserRepository()
		user, err := userRepo.GetByEmail(c.FormValue("email"))
		if err != nil {
			fm["message"] = "Login fehlgeschlagen"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if !user.CheckPassword(c.FormValue("password")) {
			fm["message"] = "Login fehlgeschlagen"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if !user.IsActive() {
			fm["message"] = "Bitte bestätige zuerst deine E-Mail-Adresse"

			return flash.WithError(c, fm).Redirect("/login")
		}

		sess, err := session.GetSessionStore().Get(c)
		if err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect("/login")
		}

		sess.Set(AUTH_KEY, true)
		sess.Set(USER_ID, user.ID)
		sess.Set(USER_NAME, user.Name)
		sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)

		if err := sess.Save(); err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect("/login")
		}

		ipv4, ipv6 := GetClientIP(c)
		now := time.Now()
		user.LastLoginAt = &now
		user.IPv4 = ipv4
		user.IPv6 = ipv6
		if err := userRepo.Update(user); err != nil {
			log.Warnf("[Auth] failed to update login metadata for user %d: %v", user.ID, err)
		}

		fm = fiber.Map{
			"type":    "success",
			"message": "Willkommen zurück!",
		}

		return flash.WithSuccess(c, fm).Redirect("/dashboard")
	}

	data := renderData(c, "Einloggen")
	return c.Render("auth/login", data)
}

func HandleAuthLogout(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = "logged out (no sess)"

		return flash.WithError(c, fm).Redirect("/login")
	}

	if err := sess.Destroy(); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/login")
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "Bis bald! Auf Wiedersehen.",
	}

	return flash.WithSuccess(c, fm).Redirect("/login")
}

func HandleAuthRegister(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		// Verify hCaptcha token
		hcaptchaToken := c.FormValue("h-captcha-response")
		valid, err := hcaptcha.Verify(hcaptchaToken)
		if err != nil || !valid {
			errorMsg := "Captcha validation failed. Please try again."
			if err != nil && env.IsDev() {
				errorMsg = fmt.Sprintf("Captcha validation failed: %v", err)
			}

			fm := fiber.Map{
				"type":    "error",
				"message": errorMsg,
			}
			return flash.WithError(c, fm).Redirect("/register")
		}

		user, err := models.CreateUser(c.FormValue("username"), c.FormValue("email"), c.FormValue("password"))
		if err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		if err := user.GenerateActivationToken(); err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		if err := repository.GetGlobalFactory().GetUserRepository().Create(user); err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		activationURL := fmt.Sprintf("%s/activate/%s",
			env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), user.ActivationToken)
		go func() {
			if err := mail.SendActivationMail(user.Email, user.Name, activationURL); err != nil {
				log.Errorf("[Auth] failed to send activation mail to %s: %v", user.Email, err)
			}
		}()

		fm := fiber.Map{
			"type":    "success",
			"message": "Registrierung erfolgreich! Bitte bestätige deine E-Mail-Adresse.",
		}

		return flash.WithSuccess(c, fm).Redirect("/login")
	}

	data := renderData(c, "Registrieren")
	data["HCaptchaSitekey"] = env.GetEnv("HCAPTCHA_SITEKEY", "")
	return c.Render("auth/register", data)
}

// HandleAuthActivate activates an account via the emailed token
func HandleAuthActivate(c *fiber.Ctx) error {
	token := c.Params("token")
	fm := fiber.Map{
		"type": "error",
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByActivationToken(token)
	if err != nil {
		fm["message"] = "Ungültiger oder abgelaufener Aktivierungslink"

		return flash.WithError(c, fm).Redirect("/login")
	}

	if user.ActivationSentAt != nil && time.Since(*user.ActivationSentAt) > 24*time.Hour {
		fm["message"] = "Der Aktivierungslink ist abgelaufen"

		return flash.WithError(c, fm).Redirect("/login")
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	if err := userRepo.Update(user); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/login")
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "Konto aktiviert! Du kannst dich jetzt einloggen.",
	}

	return flash.WithSuccess(c, fm).Redirect("/login")
}
