package synth

import (
	"fmt"
	"strings"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/dustin/go-humanize"
)

var urgencyPrefix = map[domain.Urgency]string{
	domain.UrgencyPriority: "Priority",
	domain.UrgencyExpress:  "Express",
	domain.UrgencyUrgent:   "URGENT",
	domain.UrgencyCritical: "CRITICAL",
}

var urgencyNote = map[domain.Urgency]string{
	domain.UrgencyStandard: "Standard delivery window.",
	domain.UrgencyPriority: "Priority shipment, the client expects a prompt departure.",
	domain.UrgencyExpress:  "Express service: deliver within the day.",
	domain.UrgencyUrgent:   "Urgent: this offer will not last long.",
	domain.UrgencyCritical: "Critical delivery, depart as soon as possible.",
}

var classLabel = map[domain.PassengerClass]string{
	domain.PassengerEconomy:  "Economy",
	domain.PassengerBusiness: "Business",
	domain.PassengerFirst:    "First class",
	domain.PassengerCharter:  "Charter",
	domain.PassengerVIP:      "VIP",
}

func withUrgency(u domain.Urgency, title string) string {
	if p, ok := urgencyPrefix[u]; ok {
		return p + ": " + title
	}
	return title
}

func cargoTitle(job *domain.Job) string {
	return withUrgency(job.Urgency, fmt.Sprintf("%s to %s", job.CargoTypeName, job.ArrivalCode))
}

func cargoDescription(job *domain.Job, ct domain.CargoType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transport %s lbs of %s from %s to %s (%.1f nm).",
		humanize.Comma(int64(job.WeightLbs)), strings.ToLower(ct.Name),
		job.DepartureCode, job.ArrivalCode, job.DistanceNm)
	b.WriteString(" ")
	b.WriteString(urgencyNote[job.Urgency])
	if ct.SpecialHandling {
		handling := ct.HandlingType
		if handling == "" {
			handling = "special"
		}
		fmt.Fprintf(&b, " Requires %s handling certification.", handling)
	}
	if ct.Illegal {
		fmt.Fprintf(&b, " No questions asked. Risk level %d.", job.RiskLevel)
	}
	return b.String()
}

func passengerTitle(job *domain.Job) string {
	noun := "passengers"
	if job.PassengerCount == 1 {
		noun = "passenger"
	}
	return withUrgency(job.Urgency, fmt.Sprintf("%s: %d %s to %s",
		classLabel[job.PassengerClass], job.PassengerCount, noun, job.ArrivalCode))
}

func passengerDescription(job *domain.Job) string {
	return fmt.Sprintf("Fly %d %s passenger(s) from %s to %s (%.1f nm, about %s lbs with baggage). %s",
		job.PassengerCount, strings.ToLower(classLabel[job.PassengerClass]),
		job.DepartureCode, job.ArrivalCode, job.DistanceNm,
		humanize.Comma(int64(job.WeightLbs)), urgencyNote[job.Urgency])
}
