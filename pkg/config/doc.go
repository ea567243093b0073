// Package config loads the operator's credential profiles and the retry
// policy file.
//
// # Profiles
//
// A profile is a dotenv file in the profile directory (by default
// ~/.edgebind). The profile named "default" is stored as ".env"; any other
// profile "x" is stored as "x.env". The keys are the ones the original
// deployment scripts used, so existing files keep working:
//
//	SIGSCI_EMAIL="ops@example.com"
//	SIGSCI_TOKEN="..."
//	FASTLY_KEY="..."
//	corpName="acme"
//	siteShortName="www"
//	fastlySID="SID123"
//
// All six values are required and the security token must differ from the
// CDN key. Profiles are written with mode 0600.
//
// # Retry Policy
//
// An optional YAML file tunes the bind convergence loop:
//
//	delay: 3s
//	max_attempts: 0      # 0 retries forever
//	max_elapsed: 0s      # 0 retries forever
//	success_statuses: [200]
//	fatal_statuses: [401, 403]
package config
