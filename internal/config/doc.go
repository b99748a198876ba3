// SPDX-License-Identifier: MIT

// Package config loads, validates, and hot-reloads the zsc configuration.
// Precedence: environment > keys file > config file > defaults. All
// environment access of the application is funneled through this package.
package config
