package event

const OTPIssuedDestination string = "identity.otp_issued"
const OTPIssuedConsumerNotification string = "identity.otp_issued.notification"

// OTPIssuedMessage carries the plaintext code to the notification module.
// It is the only place the code leaves the identity module.
type OTPIssuedMessage struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	Purpose    string `json:"purpose"`
	TTLMinutes int    `json:"ttl_minutes"`
}
