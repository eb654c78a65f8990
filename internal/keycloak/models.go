// Пакет keycloak - HTTP-клиент к Keycloak Admin REST API.
// models.go - модели данных Keycloak.
package keycloak

import "time"

// TokenResponse - ответ на запрос токена через Client Credentials flow.
type TokenResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // G117: структура токена OAuth2
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// KeycloakUser - пользователь в Keycloak.
// Attributes - произвольные атрибуты, попадают в токен через mapper'ы realm
// и служат custom claims пользователя.
type KeycloakUser struct { //nolint:revive // stuttering допустим - внешний API Keycloak
	ID            string              `json:"id"`
	Username      string              `json:"username"`
	Email         string              `json:"email"`
	FirstName     string              `json:"firstName,omitempty"`
	LastName      string              `json:"lastName,omitempty"`
	Enabled       bool                `json:"enabled"`
	CreatedAt     int64               `json:"createdTimestamp"`
	EmailVerified bool                `json:"emailVerified"`
	Attributes    map[string][]string `json:"attributes,omitempty"`
	// RequiredActions не используются сервисом, но сохраняются при записи.
	RequiredActions []string `json:"requiredActions,omitempty"`
}

// CreatedAtTime возвращает CreatedAt как time.Time.
// Keycloak хранит timestamp в миллисекундах.
func (u *KeycloakUser) CreatedAtTime() time.Time {
	return time.UnixMilli(u.CreatedAt)
}

// Claims возвращает атрибуты пользователя как плоский словарь claims.
// Для многозначных атрибутов берётся первое значение.
func (u *KeycloakUser) Claims() map[string]string {
	claims := make(map[string]string, len(u.Attributes))
	for k, v := range u.Attributes {
		if len(v) > 0 {
			claims[k] = v[0]
		}
	}
	return claims
}

// RealmRepresentation - краткая информация о realm.
type RealmRepresentation struct {
	Realm   string `json:"realm"`
	Enabled bool   `json:"enabled"`
}
