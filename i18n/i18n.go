// Package i18n resolves user-facing error messages. A missing key never
// surfaces as a raw key or an empty string.
package i18n

import (
	"golang.org/x/text/language"

	"milorg-admin/apperr"
)

// DefaultFallback is used when neither a translation nor a caller fallback exists.
const DefaultFallback = "An unexpected error occurred."

var catalog = map[language.Tag]map[string]string{
	language.BrazilianPortuguese: {
		apperr.CodeTokenMissing:       "Sessão não encontrada. Faça login novamente.",
		apperr.CodeTokenInvalid:       "Sessão inválida. Faça login novamente.",
		apperr.CodeTokenExpired:       "Sua sessão expirou. Faça login novamente.",
		apperr.CodeInvalidCredentials: "E-mail ou senha inválidos.",
		apperr.CodeForbidden:          "Você não tem permissão para acessar este recurso.",
		apperr.CodeMissingFields:      "Preencha todos os campos obrigatórios.",
		apperr.CodeInvalidInput:       "Dados inválidos.",
		apperr.CodeNotFound:           "Registro não encontrado.",
		apperr.CodeDuplicateAcronym:   "Já existe uma seção com esta sigla nesta organização.",
		apperr.CodeDuplicateEntry:     "Registro já existente.",
		apperr.CodeOrganizationCycle:  "Uma organização não pode ser subordinada a si mesma nem a uma de suas subordinadas.",
		apperr.CodeHasSubOrganization: "A organização possui organizações subordinadas ativas.",
		apperr.CodeInUse:              "O registro está em uso e não pode ser excluído.",
		apperr.CodeRateLimited:        "Muitas tentativas. Tente novamente mais tarde.",
		apperr.CodeNetwork:            "Falha de comunicação com o servidor.",
		apperr.CodeInternal:           "Erro interno do servidor.",
	},
	language.English: {
		apperr.CodeTokenMissing:       "Session not found. Please sign in again.",
		apperr.CodeTokenInvalid:       "Invalid session. Please sign in again.",
		apperr.CodeTokenExpired:       "Your session has expired. Please sign in again.",
		apperr.CodeInvalidCredentials: "Invalid e-mail or password.",
		apperr.CodeForbidden:          "You do not have permission to access this resource.",
		apperr.CodeMissingFields:      "Please fill in all required fields.",
		apperr.CodeNotFound:           "Record not found.",
		apperr.CodeDuplicateAcronym:   "A section with this acronym already exists in this organization.",
		apperr.CodeOrganizationCycle:  "An organization cannot be placed under itself or one of its descendants.",
		apperr.CodeInternal:           "Internal server error.",
	},
}

// Translator matches a request language against the catalog.
type Translator struct {
	def     language.Tag
	tags    []language.Tag
	matcher language.Matcher
}

// New returns a translator whose default language is def (e.g. "pt-BR").
// Unknown defaults fall back to Brazilian Portuguese.
func New(def string) *Translator {
	defTag := language.BrazilianPortuguese
	if t, err := language.Parse(def); err == nil {
		if _, ok := catalog[t]; ok {
			defTag = t
		}
	}
	tags := []language.Tag{defTag}
	for t := range catalog {
		if t != defTag {
			tags = append(tags, t)
		}
	}
	return &Translator{def: defTag, tags: tags, matcher: language.NewMatcher(tags)}
}

func (t *Translator) resolve(accept string) language.Tag {
	if accept == "" {
		return t.def
	}
	prefs, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(prefs) == 0 {
		return t.def
	}
	_, idx, conf := t.matcher.Match(prefs...)
	if conf == language.No {
		return t.def
	}
	return t.tags[idx]
}

// Message returns the translation of code for the Accept-Language value
// accept. It falls back to the default language, then to fallback, then
// to DefaultFallback.
func (t *Translator) Message(accept, code, fallback string) string {
	tag := t.resolve(accept)
	if msg := catalog[tag][code]; msg != "" {
		return msg
	}
	if msg := catalog[t.def][code]; msg != "" {
		return msg
	}
	if fallback != "" {
		return fallback
	}
	return DefaultFallback
}
