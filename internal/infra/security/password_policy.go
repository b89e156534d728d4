package security

const (
	defaultMinPasswordLength = 12
	defaultMaxPasswordLength = 128
)

// PasswordPolicyConfig tunes the registration password policy.
// A MinScore of zero disables the zxcvbn strength check.
type PasswordPolicyConfig struct {
	MinLength int
	MinScore  int
}

// PasswordPolicy validates registration passwords, feeding contextual inputs such as the
// email address into the strength estimator.
type PasswordPolicy struct {
	cfg PasswordPolicyConfig
}

// NewPasswordPolicy returns a policy with defaults applied to unset fields.
func NewPasswordPolicy(cfg PasswordPolicyConfig) *PasswordPolicy {
	if cfg.MinLength <= 0 {
		cfg.MinLength = defaultMinPasswordLength
	}
	return &PasswordPolicy{cfg: cfg}
}

// Validate checks password against the policy. userInputs are treated as known words.
func (p *PasswordPolicy) Validate(password string, userInputs ...string) error {
	inputs := make([]string, 0, len(userInputs))
	for _, in := range userInputs {
		if in != "" {
			inputs = append(inputs, in)
		}
	}

	return NewPasswordValidator(
		MinLengthRule(p.cfg.MinLength),
		MaxLengthRule(defaultMaxPasswordLength),
		RequirePasswordStrengthRule(p.cfg.MinScore, inputs...),
	).Validate(password)
}
