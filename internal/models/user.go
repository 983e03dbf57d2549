package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// ParseRole maps free text to a Role, defaulting to student.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return Role(s)
	}
	return RoleStudent
}

// Marks is an obtained/total pair for board examination results.
type Marks struct {
	ObtainedMarks float64 `bson:"obtainedMarks,omitempty" json:"obtainedMarks,omitempty"`
	TotalMarks    float64 `bson:"totalMarks,omitempty" json:"totalMarks,omitempty"`
}

// Profile holds the student-facing details shown on the portal.
type Profile struct {
	FirstName         string   `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName          string   `bson:"lastName,omitempty" json:"lastName,omitempty"`
	EnrollmentNumber  string   `bson:"enrollmentNumber,omitempty" json:"enrollmentNumber,omitempty"`
	Department        string   `bson:"department,omitempty" json:"department,omitempty"`
	Semester          int      `bson:"semester,omitempty" json:"semester,omitempty" validate:"omitempty,min=1,max=8"`
	Phone             string   `bson:"phone,omitempty" json:"phone,omitempty"`
	TenthPercentage   *float64 `bson:"tenthPercentage,omitempty" json:"tenthPercentage,omitempty" validate:"omitempty,min=0,max=100"`
	TenthMarks        *Marks   `bson:"tenthMarks,omitempty" json:"tenthMarks,omitempty"`
	TwelfthPercentage *float64 `bson:"twelfthPercentage,omitempty" json:"twelfthPercentage,omitempty" validate:"omitempty,min=0,max=100"`
	CGPA              *float64 `bson:"cgpa,omitempty" json:"cgpa,omitempty" validate:"omitempty,min=0,max=10"`
}

// User represents a registered portal account.
//
// Nullable timestamps are pointers: a nil value is omitted from the stored
// document, which is how a field is cleared on Save.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	Role         Role               `bson:"role"`
	Profile      Profile            `bson:"profile"`
	IsActive     bool               `bson:"isActive"`

	LoginAttempts int        `bson:"loginAttempts"`
	LockUntil     *time.Time `bson:"lockUntil,omitempty"`

	OTP            string     `bson:"otp,omitempty"`
	OTPExpires     *time.Time `bson:"otpExpires,omitempty"`
	OTPAttempts    int        `bson:"otpAttempts"`
	OTPGeneratedAt *time.Time `bson:"otpGeneratedAt,omitempty"`

	IsEmailVerified bool       `bson:"isEmailVerified"`
	LastLogin       *time.Time `bson:"lastLogin,omitempty"`

	ResetPasswordToken   string     `bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpires *time.Time `bson:"resetPasswordExpires,omitempty"`
	ResetRequestedAt     *time.Time `bson:"resetRequestedAt,omitempty"`
	PasswordChangedAt    *time.Time `bson:"passwordChangedAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// DisplayName is the name used to greet the user in emails.
func (u *User) DisplayName() string {
	if u.Profile.FirstName != "" {
		return u.Profile.FirstName
	}
	return u.Username
}

// IsLocked reports whether the lockout window is still running at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LoginAttempts >= MaxLoginAttempts && u.LockUntil != nil && u.LockUntil.After(now)
}

// ClearOTP removes the pending code together with its expiry and attempt count.
func (u *User) ClearOTP() {
	u.OTP = ""
	u.OTPExpires = nil
	u.OTPAttempts = 0
}

// ClearLock resets the failed-login counter and lock.
func (u *User) ClearLock() {
	u.LoginAttempts = 0
	u.LockUntil = nil
}

// ClearReset drops any outstanding password-reset request.
func (u *User) ClearReset() {
	u.ResetPasswordToken = ""
	u.ResetPasswordExpires = nil
	u.ResetRequestedAt = nil
}

// MaxLoginAttempts is the failed-password count that arms the lockout.
const MaxLoginAttempts = 5

// Stored field names, grouped by the state transition that writes them.
// A save names the groups it changed and leaves every other field as stored.
var (
	FieldsLock     = []string{"loginAttempts", "lockUntil"}
	FieldsOTP      = []string{"otp", "otpExpires", "otpAttempts", "otpGeneratedAt"}
	FieldsReset    = []string{"resetPasswordToken", "resetPasswordExpires", "resetRequestedAt"}
	FieldsPassword = []string{"password", "passwordChangedAt"}
	FieldsSignIn   = []string{"isEmailVerified", "lastLogin"}
)

// Fields concatenates field groups.
func Fields(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// PublicUser is the projection of a User that is safe to return to clients.
type PublicUser struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	Role            Role       `json:"role"`
	Profile         Profile    `json:"profile"`
	IsActive        bool       `json:"isActive"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Public returns the sanitized view of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID.Hex(),
		Username:        u.Username,
		Email:           u.Email,
		Role:            u.Role,
		Profile:         u.Profile,
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		LastLogin:       u.LastLogin,
		CreatedAt:       u.CreatedAt,
	}
}
