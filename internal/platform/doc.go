// Package platform maps the host CPU to the release asset architecture tag.
package platform
