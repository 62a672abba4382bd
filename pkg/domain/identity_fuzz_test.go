//go:build go1.18

package domain

import "testing"

// FuzzParseIdentity checks that parsing never panics and that every accepted
// identity round-trips through its checksummed form.
func FuzzParseIdentity(f *testing.F) {
	f.Add("")
	f.Add("0x0000000000000000000000000000000000000000")
	f.Add("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	f.Add("0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	f.Add("not-an-address")
	f.Add("0x'; DROP TABLE registry_access;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseIdentity(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseIdentity(id.String())
		if err != nil {
			t.Fatalf("checksummed form failed to parse: %v", err)
		}
		if !roundTrip.Equal(id) {
			t.Fatalf("round-trip changed identity: %q -> %q", id, roundTrip)
		}
	})
}
