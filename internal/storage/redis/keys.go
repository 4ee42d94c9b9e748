package redis

import "fmt"

// keys builds Redis keys under a fixed prefix
type keys struct {
	prefix string
}

// account returns the key holding an Account as JSON
func (k keys) account(username string) string {
	return fmt.Sprintf("%s:account:%s", k.prefix, username)
}

// accountIndex returns the SET of all registered usernames
func (k keys) accountIndex() string {
	return fmt.Sprintf("%s:idx:accounts", k.prefix)
}

// gifts returns the LIST of an owner's gifts in posting order
func (k keys) gifts(owner string) string {
	return fmt.Sprintf("%s:gifts:%s", k.prefix, owner)
}

// giftSet returns the SET used to reject duplicate gifts for an owner
func (k keys) giftSet(owner string) string {
	return fmt.Sprintf("%s:giftset:%s", k.prefix, owner)
}

// ownerIndex returns the SET of owners with a wish list
func (k keys) ownerIndex() string {
	return fmt.Sprintf("%s:idx:owners", k.prefix)
}

// pattern matches every key under the prefix
func (k keys) pattern() string {
	return k.prefix + ":*"
}
