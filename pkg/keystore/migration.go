package keystore

// Migrate copies the session credentials from src into dst and returns how many keys
// were copied. Keys absent in src are left untouched in dst.
// This works for:
// - file -> sqlite (moving to a shared database)
// - sqlite -> file (going back to a single encrypted file)
func Migrate(src Reader, dst Writer) int {
	copied := 0
	for _, key := range CredentialKeys {
		val, ok := src.Get(key)
		if !ok {
			continue
		}
		dst.Save(key, val)
		copied++
	}
	return copied
}
