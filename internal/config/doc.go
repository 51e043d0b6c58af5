// Package config holds the options of a ytscan run and loads the optional
// .ytscan YAML file with per-target cookies, headers and depth, extra
// count units and locale words.
package config
