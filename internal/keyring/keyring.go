// Package keyring caches authenticator passwords in the OS keyring.
package keyring

import (
	"github.com/zalando/go-keyring"
)

const serviceName = "dspasswd"

// key identifies an authenticator within a directory node.
func key(authName, location string) string {
	return authName + "@" + location
}

// SavePassword stores an authenticator's password in the OS keyring
func SavePassword(authName, location, password string) error {
	return keyring.Set(serviceName, key(authName, location), password)
}

// GetPassword retrieves an authenticator's password from the OS keyring
func GetPassword(authName, location string) (string, error) {
	return keyring.Get(serviceName, key(authName, location))
}

// DeletePassword removes an authenticator's password from the OS keyring
func DeletePassword(authName, location string) error {
	return keyring.Delete(serviceName, key(authName, location))
}

// HasPassword checks if a password is stored in the keyring
func HasPassword(authName, location string) bool {
	_, err := keyring.Get(serviceName, key(authName, location))
	return err == nil
}
