// user.go — учётная запись пользователя.
package model

import "time"

// User — пользователь сервиса. Соответствует элементу массива
// users в db.json. Создаётся при регистрации, читается при входе,
// не изменяется и не удаляется.
type User struct {
	// ID — уникальный идентификатор пользователя (UUID v4)
	ID string `json:"id"`

	// Username — уникальное имя пользователя
	Username string `json:"username"`

	// PasswordHash — bcrypt-хэш пароля. Не возвращается в API.
	PasswordHash string `json:"password_hash"`

	// CreatedAt — дата регистрации (UTC)
	CreatedAt time.Time `json:"created_at"`
}
