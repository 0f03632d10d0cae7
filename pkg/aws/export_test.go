package aws

import "time"

func SetSecretsClock(s *SecretsClient, now func() time.Time) { s.now = now }
