package vault

import (
	"bytes"
	"errors"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := DeriveKey("correct horse", "com.nightpass.client")
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	return key
}

func TestEncryptDecrypt(t *testing.T) {
	key := testKey(t)
	plaintext := "eyJhbGciOiJIUzI1NiJ9.access"

	ciphertext, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}
	if ciphertext == plaintext {
		t.Fatal("Ciphertext should not be equal to plaintext")
	}

	decrypted, err := Decrypt(ciphertext, key)
	if err != nil {
		t.Fatalf("Decryption failed: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("Expected %s, got %s", plaintext, decrypted)
	}
}

func TestEncrypt_FreshNonce(t *testing.T) {
	key := testKey(t)
	a, _ := Encrypt("same", key)
	b, _ := Encrypt("same", key)
	if a == b {
		t.Fatal("two encryptions of the same plaintext should differ")
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	other, err := DeriveKey("correct horse", "com.other.app")
	if err != nil {
		t.Fatal(err)
	}

	ciphertext, err := Encrypt("refresh-token", testKey(t))
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}
	if _, err := Decrypt(ciphertext, other); err == nil {
		t.Fatal("Decryption should have failed with a key from another namespace")
	}
}

func TestDeriveKey(t *testing.T) {
	k1, _ := DeriveKey("pass", "ns")
	k2, _ := DeriveKey("pass", "ns")
	if len(k1) != KeySize {
		t.Fatalf("expected %d bytes, got %d", KeySize, len(k1))
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("derivation must be deterministic")
	}
	if _, err := DeriveKey("", "ns"); err == nil {
		t.Fatal("empty passphrase should be rejected")
	}
}

func TestInvalidKeySize(t *testing.T) {
	if _, err := Encrypt("test", []byte("shortkey")); err == nil {
		t.Fatal("Encryption should fail with invalid key size")
	}
	if _, err := Decrypt("0123456789abcdef0123456789abcdef", []byte("shortkey")); err == nil {
		t.Fatal("Decryption should fail with invalid key size")
	}
}

func TestDecryptMalformedHex(t *testing.T) {
	if _, err := Decrypt("not-hex", testKey(t)); err == nil {
		t.Fatal("Decryption should fail with malformed hex")
	}
}

func TestDecryptTooShort(t *testing.T) {
	_, err := Decrypt("abcdef", testKey(t))
	if !errors.Is(err, ErrCiphertextTooShort) {
		t.Fatalf("expected ErrCiphertextTooShort, got %v", err)
	}
}
