// Package auth issues session tokens, manages one-time password reset
// tokens, and orchestrates the account flows built on top of them:
// register, login, profile, change password, forgot/reset password and
// logout.
package auth
