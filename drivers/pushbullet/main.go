package main

import (
	tap "github.com/reservoir-data/tap-pushbullet"
	driver "github.com/reservoir-data/tap-pushbullet/drivers/pushbullet/internal"
)

func main() {
	tap.RegisterDriver(&driver.Pushbullet{})
}
