// Package i18n negotiates the display language and holds the small string
// catalog of the dashboard chrome.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Default is the language used when nothing else matches
const Default = "en"

// Supported lists the languages with a catalog, in preference order
var Supported = []language.Tag{language.English, language.Spanish}

var matcher = language.NewMatcher(Supported)

// Normalize maps a user-supplied tag ("es-MX", "EN") to a supported base
// language. ok is false when the tag is invalid or unsupported.
func Normalize(tag string) (string, bool) {
	t, err := language.Parse(tag)
	if err != nil {
		return "", false
	}

	_, index, confidence := matcher.Match(t)
	if confidence == language.No {
		return "", false
	}
	return base(Supported[index]), true
}

// Negotiate picks the display language: the stored preference when it is
// supported, otherwise the best match for the Accept-Language header.
func Negotiate(preferred, acceptLanguage string) string {
	if preferred != "" {
		if lang, ok := Normalize(preferred); ok {
			return lang
		}
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}

	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Default
	}
	return base(Supported[index])
}

func base(t language.Tag) string {
	b, _ := t.Base()
	return b.String()
}

// Languages returns the supported base languages
func Languages() []string {
	out := make([]string, len(Supported))
	for i, t := range Supported {
		out[i] = base(t)
	}
	return out
}

// T looks up key in the catalog of lang, falling back to English and then
// to the key itself.
func T(lang, key string) string {
	if s := lookup(tagFor(lang), key); s != key {
		return s
	}
	return lookup(language.English, key)
}

func lookup(tag language.Tag, key string) string {
	return message.NewPrinter(tag, message.Catalog(messages)).Sprintf(key)
}

// tagFor maps a base language to its catalog tag; unknown languages get
// the default
func tagFor(lang string) language.Tag {
	for _, t := range Supported {
		if base(t) == lang {
			return t
		}
	}
	return language.English
}

// entries holds the dashboard chrome strings as key, English, Spanish
var entries = []struct {
	key, en, es string
}{
	{"app.title", "Plant Dashboard", "Panel de Planta"},
	{"login.title", "Sign in", "Iniciar sesión"},
	{"login.email", "Email", "Correo"},
	{"login.password", "Password", "Contraseña"},
	{"login.submit", "Sign in", "Entrar"},
	{"login.invalid", "Enter a valid email and password.", "Ingrese un correo y contraseña válidos."},
	{"login.failed.auth", "Invalid email or password.", "Correo o contraseña incorrectos."},
	{"login.failed.network", "Unable to reach the server. Please try again.", "No se pudo contactar al servidor. Intente de nuevo."},
	{"login.failed.busy", "A sign-in is already in progress.", "Ya hay un inicio de sesión en curso."},
	{"login.failed.internal", "Sign-in failed. Please try again.", "No se pudo iniciar sesión. Intente de nuevo."},
	{"nav.dashboard", "Dashboard", "Panel"},
	{"nav.reports", "Reports", "Reportes"},
	{"nav.admin", "Admin", "Administración"},
	{"nav.logout", "Sign out", "Cerrar sesión"},
	{"theme.toggle", "Toggle dark mode", "Cambiar modo oscuro"},
	{"dashboard.title", "Plants", "Plantas"},
	{"dashboard.empty", "No plants available.", "No hay plantas disponibles."},
	{"plant.systems", "Systems", "Sistemas"},
	{"plant.parameters", "Parameters", "Parámetros"},
	{"reports.title", "Reports", "Reportes"},
	{"reports.new", "New report", "Nuevo reporte"},
	{"reports.submit", "Generate report", "Generar reporte"},
	{"reports.queued", "Report queued for generation.", "Reporte en cola de generación."},
	{"reports.empty", "No reports yet.", "Aún no hay reportes."},
	{"report.field.title", "Title", "Título"},
	{"report.field.plant", "Plant", "Planta"},
	{"report.field.from", "From", "Desde"},
	{"report.field.to", "To", "Hasta"},
	{"report.field.fmt", "Format", "Formato"},
	{"report.field.system", "System", "Sistema"},
	{"report.field.params", "Parameters", "Parámetros"},
	{"report.invalid", "Check the report fields and try again.", "Revise los campos del reporte e intente de nuevo."},
	{"reports.status", "Status", "Estado"},
	{"reports.created", "Created", "Creado"},
	{"admin.lastSeen", "Last seen", "Última actividad"},
	{"admin.agent", "Browser", "Navegador"},
	{"lang.label", "Language", "Idioma"},
	{"admin.title", "Administration", "Administración"},
	{"admin.sessions", "Active browser sessions", "Sesiones activas"},
	{"admin.queues", "Job queues", "Colas de trabajo"},
	{"loading", "Loading…", "Cargando…"},
	{"error.backend", "The server could not complete the request.", "El servidor no pudo completar la solicitud."},
}

var messages = newCatalog()

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, e := range entries {
		set(b, language.English, e.key, e.en)
		set(b, language.Spanish, e.key, e.es)
	}
	return b
}

func set(b *catalog.Builder, tag language.Tag, key, msg string) {
	if err := b.SetString(tag, key, msg); err != nil {
		panic(fmt.Sprintf("i18n: invalid message %s for %s: %v", key, tag, err))
	}
}
