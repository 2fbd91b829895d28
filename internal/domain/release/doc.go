// Package release contains the core domain types of a bundling run.
//
// It defines Platform and Target (one build job of the fixed matrix), the
// archive naming rules shared by every stage, the error taxonomy that
// pipeline failures are classified into, and the Manifest describing
// published archives.
package release
