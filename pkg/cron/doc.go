// Package cron schedules periodic `mihoro update` runs through the user's
// crontab.
//
// Enabling writes a single-line reference file (by default
// $XDG_RUNTIME_DIR/mihoro-crontab) and installs it as the whole user
// crontab, replacing any existing entries. Disabling removes the reference
// file and runs `crontab -r`. Because the reference file lives in the runtime
// directory it disappears on logout, while the installed crontab does not;
// Status therefore reflects the reference file, not the cron daemon.
package cron
