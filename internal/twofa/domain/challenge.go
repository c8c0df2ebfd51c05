package domain

// ChallengeView is what the 2FA page renders: the principal, whether
// this render is the one-time setup view, and a QR data URI when one
// could be produced. A nil QR is a documented degradation, never an
// error, so the page still renders when encoding fails.
type ChallengeView struct {
	User          User
	Setup         bool   // true exactly once, on the render consuming ShowSetup
	Secret        string // manual-entry key, only on the setup render
	QRCodeDataURI string // empty when rendering failed or no secret exists
}

// EnrollResult is returned by the enablement paths: the freshly minted
// (or existing) secret plus everything a client needs to import it.
type EnrollResult struct {
	Secret          string
	ProvisioningURI string
	QRCodeDataURI   string
	AlreadyEnabled  bool
}
