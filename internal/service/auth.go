package service

import (
	"context"
	"errors"
	"net/mail"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/XW123-ART/smart-test-platform/internal/domain"
)

func (m *Manager) Register(ctx context.Context, username, email, password, confirm string) (*domain.User, error) {
	verr := &domain.ValidationError{Fields: map[string]string{}}

	switch n := utf8.RuneCountInString(username); {
	case n == 0:
		verr.Fields["username"] = "用户名不能为空"
	case n < 3 || n > 20:
		verr.Fields["username"] = "用户名长度必须在3-20个字符之间"
	}

	if email == "" {
		verr.Fields["email"] = "邮箱不能为空"
	} else if _, err := mail.ParseAddress(email); err != nil {
		verr.Fields["email"] = "请输入有效的邮箱地址"
	}

	switch {
	case password == "":
		verr.Fields["password"] = "密码不能为空"
	case utf8.RuneCountInString(password) < 6:
		verr.Fields["password"] = "密码长度至少6位"
	}

	switch {
	case confirm == "":
		verr.Fields["confirm_password"] = "请确认密码"
	case confirm != password:
		verr.Fields["confirm_password"] = "两次输入的密码不一致"
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}

	if _, err := m.repo.GetUserByUsername(ctx, username); err == nil {
		verr.Fields["username"] = "该用户名已被使用，请换一个"
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if _, err := m.repo.GetUserByEmail(ctx, email); err == nil {
		verr.Fields["email"] = "该邮箱已被注册，请换一个或尝试登录"
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := m.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	m.log.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login returns the same error for a missing user and a wrong password
// so the response does not leak which accounts exist.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := m.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (m *Manager) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	return m.repo.GetUserByID(ctx, id)
}

func (m *Manager) ListUsers(ctx context.Context) ([]domain.User, error) {
	return m.repo.ListUsers(ctx)
}
