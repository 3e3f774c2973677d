package domain

// Metadata keys stored on billing-platform customers.
const (
	MetaMember   = "membre"
	MetaSalt     = "salt"
	MetaPassword = "password"
	MetaProvider = "provider"
	MetaStatus   = "status"
	MetaVAT      = "vat"
)

// Customer statuses used by the onboarding flow.
const (
	CustomerPending  = "pending"
	CustomerComplete = "complete"
)

// Customer is a billing-platform customer record.
type Customer struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

// IsMember reports whether the customer carries the member flag.
func (c Customer) IsMember() bool {
	_, ok := c.Metadata[MetaMember]
	return ok
}

// Member is a customer flagged as an internal member of the association.
type Member struct {
	Customer
}

// Members returns the customers flagged as members.
func Members(customers []Customer) []Member {
	var members []Member
	for _, c := range customers {
		if c.IsMember() {
			members = append(members, Member{Customer: c})
		}
	}
	return members
}

// CustomerUpdate is the completed onboarding data for a pending customer.
type CustomerUpdate struct {
	Name     string
	Email    string
	VAT      string
	Phone    string
	Country  string
	City     string
	Address1 string
	Address2 string
	PostCode string
}

// Account describes the organization's billing-platform account.
type Account struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Address *Address `json:"address"`
}

// Address is a postal address.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country"`
}
