// Package binaries detects prebuilt binary artifacts tracked by git.
//
// Detection runs in two phases over the tracked regular files. The extension
// filter classifies files whose final suffix belongs to the policy extension
// set without reading them. Every remaining file is described by file(1) in
// fixed-size batches and classified when its description matches any denylist
// pattern. A classified file is allowlisted when its exact path appears in the
// compiled-in allowlist and is a violation otherwise.
package binaries
