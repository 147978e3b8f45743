package main

import (
	"time"

	"github.com/eternalist/theprintfarm/internal/model"
)

func ptr[T any](v T) *T {
	return &v
}

func day(year int, month time.Month, d int) *time.Time {
	t := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type demoModel struct {
	thingID      string
	title        string
	description  string
	image        string
	tags         []string
	license      string
	author       string
	published    *time.Time
	downloads    int
	likes        int
	complexity   model.Complexity
	printTime    string
	filamentUsed string
}

var demoModels = []demoModel{
	{"1234567", "Articulated Dragon", "A fully articulated dragon that prints in place without supports. Head, legs and tail segments all move.",
		"photo-1578662996442-48f60103fc96", []string{"dragon", "articulated", "no-supports", "toy", "fantasy"},
		"Creative Commons - Attribution", "DragonMaker3D", day(2023, time.June, 15), 15420, 892, model.ComplexityBeginner, "8 hours", "45g"},
	{"2345678", "Phone Stand with Cable Management", "An adjustable phone stand with cable routing channels. Works with phones of all sizes.",
		"photo-1556656793-08538906a9f8", []string{"phone", "stand", "organizer", "desk", "practical"},
		"Creative Commons - Attribution", "OrganizedMaker", day(2023, time.July, 22), 8934, 456, model.ComplexityBeginner, "3 hours", "22g"},
	{"3456789", "Modular Tool Organizer", "A tool organizer system built from connectable modules for workshops and maker spaces.",
		"photo-1581092160562-40aa08e78837", []string{"tool", "organizer", "modular", "workshop", "storage"},
		"Creative Commons - Attribution - Share Alike", "WorkshopWizard", day(2023, time.May, 10), 12678, 734, model.ComplexityIntermediate, "5 hours", "68g"},
	{"4567890", "Flexi Rex T-Rex", "The flexible T-Rex that prints fully assembled with print-in-place joints.",
		"photo-1551731409-43eb3e517a1a", []string{"flexi", "t-rex", "dinosaur", "flexible", "iconic", "no-supports"},
		"Creative Commons - Attribution - Non-Commercial", "FlexiDesigns", day(2023, time.April, 18), 28934, 1567, model.ComplexityBeginner, "6 hours", "38g"},
	{"5678901", "Raspberry Pi 4 Case with Fan Mount", "A Raspberry Pi 4 case with fan mounting, GPIO access and a removable top.",
		"photo-1558618047-3c8c76ca7d13", []string{"raspberry-pi", "case", "electronics", "fan", "cooling"},
		"Creative Commons - Attribution", "TechEnclosures", day(2023, time.August, 5), 6789, 423, model.ComplexityIntermediate, "4 hours", "35g"},
	{"6789012", "Customizable Desk Nameplate", "A desk nameplate with your name and title, with mounting options and a pen holder attachment.",
		"photo-1586953208448-b95a79798f07", []string{"nameplate", "desk", "office", "customizable", "professional"},
		"Creative Commons - Attribution", "OfficeDesigns3D", day(2023, time.September, 12), 3456, 198, model.ComplexityBeginner, "2 hours", "18g"},
	{"7890123", "Miniature Garden Planters Set", "Six geometric miniature planters for succulents, each with drainage holes.",
		"photo-1416879595882-3373a0480b5b", []string{"planter", "garden", "succulent", "geometric", "set"},
		"Creative Commons - Attribution - Share Alike", "GreenThumb3D", day(2023, time.March, 28), 9876, 567, model.ComplexityBeginner, "12 hours (full set)", "95g"},
	{"8901234", "Gear Mechanical Puzzle", "An interlocking gear puzzle for engineering students and puzzle enthusiasts.",
		"photo-1606107557195-0e29a4b5b4aa", []string{"puzzle", "gears", "mechanical", "engineering", "challenge"},
		"Creative Commons - Attribution - Non-Commercial", "PuzzleMaster3D", day(2023, time.July, 14), 5432, 321, model.ComplexityAdvanced, "15 hours", "125g"},
}

func (d demoModel) listing(id string, now time.Time) model.ModelListing {
	complexity := d.complexity
	return model.ModelListing{
		ID:            id,
		ThingID:       ptr(d.thingID),
		Title:         d.title,
		Description:   ptr(d.description),
		ImageURL:      ptr("https://images.unsplash.com/" + d.image + "?w=400"),
		SourceURL:     ptr("https://www.thingiverse.com/thing/" + d.thingID),
		Tags:          d.tags,
		License:       ptr(d.license),
		AuthorName:    ptr(d.author),
		PublishedAt:   d.published,
		Complexity:    &complexity,
		LikeCount:     d.likes,
		DownloadCount: d.downloads,
		PrintTime:     ptr(d.printTime),
		FilamentUsed:  ptr(d.filamentUsed),
		CreatedAt:     now,
	}
}

type demoMaker struct {
	email         string
	name          string
	materials     []string
	printerVolume string
	resolution    string
	enclosure     bool
	status        model.MakerStatus
	availability  string
	hourlyRate    int64
	city          string
	state         string
	completed     int
	rating        string
	ratings       int
}

var demoMakers = []demoMaker{
	{"maker1@example.com", "Alice the Maker", []string{"PLA", "ABS", "PETG"}, "220x220x250mm", "0.2mm", true,
		model.MakerOnline, "Weekdays 9-5 EST", 25, "Austin", "TX", 47, "4.8", 23},
	{"maker2@example.com", "Bob Print Master", []string{"PLA", "TPU"}, "300x300x400mm", "0.15mm", false,
		model.MakerOnline, "Evenings and weekends", 20, "Denver", "CO", 89, "4.9", 41},
	{"maker3@example.com", "Carol 3D Designs", []string{"PLA", "ABS", "PETG", "TPU"}, "200x200x200mm", "0.1mm", true,
		model.MakerAway, "Flexible schedule", 30, "Seattle", "WA", 156, "4.7", 67},
}

type demoCustomer struct {
	materials []string
	city      string
	state     string
}

var demoCustomers = []demoCustomer{
	{[]string{"PLA"}, "New York", "NY"},
	{[]string{"PLA", "ABS"}, "Los Angeles", "CA"},
	{[]string{"PLA", "PETG"}, "Chicago", "IL"},
}

var demoMessages = []string{
	"Hi! I'm interested in getting the dragon printed. What material do you recommend?",
	"Thanks for accepting my print request! When do you think it will be ready?",
	"The print looks amazing! Thank you for the great work.",
	"Do you have experience printing with flexible materials?",
	"I have a custom modification to the model. Can you help with that?",
}

var demoAnnouncements = []model.Announcement{
	{
		Title:    "Welcome to ThePrintFarm!",
		Content:  "We're excited to launch our 3D printing marketplace. Connect with skilled makers and bring your ideas to life!",
		Type:     model.AnnouncementSuccess,
		Priority: 10,
		IsActive: true,
	},
	{
		Title:    "New Material Options Available",
		Content:  "We've added support for PETG and TPU materials. Check out our updated maker profiles to find specialists in these materials.",
		Type:     model.AnnouncementInfo,
		Priority: 5,
		IsActive: true,
	},
}
