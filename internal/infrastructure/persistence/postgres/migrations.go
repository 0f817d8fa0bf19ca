// Package postgres implements the PostgreSQL persistence layer for Catalyst Hub.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: PROFILES AND BILLING
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create profiles, subscriptions, and billing event log
-- Version: 001

-- Main profiles table, one row per registered user
CREATE TABLE IF NOT EXISTS profiles (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email VARCHAR(254) NOT NULL UNIQUE,
    password_hash VARCHAR(100) NOT NULL,
    display_name VARCHAR(100) NOT NULL,
    avatar_url TEXT NOT NULL DEFAULT '',
    role VARCHAR(20) NOT NULL DEFAULT 'Free',
    level INTEGER NOT NULL DEFAULT 1,
    current_xp INTEGER NOT NULL DEFAULT 0,
    total_xp_earned INTEGER NOT NULL DEFAULT 0,
    stripe_customer_id VARCHAR(100),
    subscription_id VARCHAR(100),
    subscription_status VARCHAR(20) NOT NULL DEFAULT 'none',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Constraints for data integrity
    CONSTRAINT valid_role CHECK (role IN ('Free', 'Student', 'Teacher', 'Admin')),
    CONSTRAINT valid_subscription_status CHECK (subscription_status IN ('none', 'active', 'past_due', 'cancelled')),
    CONSTRAINT valid_level CHECK (level >= 1),
    CONSTRAINT valid_xp CHECK (current_xp >= 0 AND total_xp_earned >= 0)
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_profiles_email ON profiles(email);
CREATE UNIQUE INDEX IF NOT EXISTS idx_profiles_stripe_customer_id ON profiles(stripe_customer_id) WHERE stripe_customer_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_profiles_role ON profiles(role);
CREATE INDEX IF NOT EXISTS idx_profiles_total_xp ON profiles(total_xp_earned DESC);

-- Local mirror of provider subscriptions, upserted by the reconciler
CREATE TABLE IF NOT EXISTS subscriptions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    stripe_subscription_id VARCHAR(100) NOT NULL UNIQUE,
    stripe_customer_id VARCHAR(100) NOT NULL,
    status VARCHAR(20) NOT NULL,
    plan_type VARCHAR(20) NOT NULL DEFAULT 'monthly',
    current_period_end TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_sub_status CHECK (status IN ('active', 'past_due', 'cancelled')),
    CONSTRAINT valid_plan_type CHECK (plan_type IN ('monthly', 'yearly'))
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id);
CREATE INDEX IF NOT EXISTS idx_subscriptions_customer_id ON subscriptions(stripe_customer_id);
CREATE INDEX IF NOT EXISTS idx_subscriptions_period_end ON subscriptions(current_period_end) WHERE status = 'active';

-- Processed webhook events, for idempotent reconciliation
CREATE TABLE IF NOT EXISTS billing_events (
    event_id VARCHAR(100) PRIMARY KEY,
    event_type VARCHAR(100) NOT NULL,
    processed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_billing_events_processed_at ON billing_events(processed_at);
`

const migration001Down = `
DROP TABLE IF EXISTS billing_events;
DROP TABLE IF EXISTS subscriptions;
DROP TABLE IF EXISTS profiles;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: SKILLS AND LEVELS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create skill catalog, per-user points, level table, XP log
-- Version: 002

-- Coarse skill categories, one radar axis each
CREATE TABLE IF NOT EXISTS master_stats (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    sort_order INTEGER NOT NULL DEFAULT 0
);

-- Skill catalog, each skill belongs to exactly one master stat
CREATE TABLE IF NOT EXISTS skills (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    master_stat_id UUID NOT NULL REFERENCES master_stats(id) ON DELETE CASCADE,
    name VARCHAR(100) NOT NULL,
    description TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_skills_master_stat_id ON skills(master_stat_id);

-- Per-user earned points, one row per (user, skill)
CREATE TABLE IF NOT EXISTS user_skills (
    user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    skill_id UUID NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
    points_earned DOUBLE PRECISION NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, skill_id),
    CONSTRAINT valid_points CHECK (points_earned >= 0)
);

CREATE INDEX IF NOT EXISTS idx_user_skills_user_id ON user_skills(user_id);

-- Level thresholds, ordered by level number
CREATE TABLE IF NOT EXISTS levels (
    level_number INTEGER PRIMARY KEY,
    xp_threshold INTEGER NOT NULL,
    title VARCHAR(100) NOT NULL DEFAULT '',

    CONSTRAINT valid_threshold CHECK (xp_threshold >= 0)
);

-- Seed the level table; level 1 must have threshold 0 so every XP value
-- resolves to a current level
INSERT INTO levels (level_number, xp_threshold, title) VALUES
    (1, 0, 'Seeker'),
    (2, 100, 'Apprentice'),
    (3, 250, 'Practitioner'),
    (4, 500, 'Adept'),
    (5, 1000, 'Catalyst'),
    (6, 2000, 'Mentor'),
    (7, 4000, 'Sage')
ON CONFLICT (level_number) DO NOTHING;

-- Append-only XP audit log
CREATE TABLE IF NOT EXISTS xp_transactions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    amount INTEGER NOT NULL,
    source VARCHAR(50) NOT NULL,
    source_id VARCHAR(100),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_xp_transactions_user_id ON xp_transactions(user_id, created_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS xp_transactions;
DROP TABLE IF EXISTS levels;
DROP TABLE IF EXISTS user_skills;
DROP TABLE IF EXISTS skills;
DROP TABLE IF EXISTS master_stats;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: MASTERY (HABITS AND TOOLBOX)
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create habit and toolbox trackers
-- Version: 003

-- Habit catalog
CREATE TABLE IF NOT EXISTS habits_library (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category VARCHAR(50) NOT NULL DEFAULT '',
    xp_reward INTEGER NOT NULL DEFAULT 10,
    skill_ids UUID[] NOT NULL DEFAULT '{}',

    CONSTRAINT valid_habit_xp CHECK (xp_reward > 0)
);

-- Habits a user adopted from the library
CREATE TABLE IF NOT EXISTS user_habits (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    habit_id UUID NOT NULL REFERENCES habits_library(id) ON DELETE CASCADE,
    name VARCHAR(100) NOT NULL,
    xp_reward INTEGER NOT NULL DEFAULT 10,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    completion_count INTEGER NOT NULL DEFAULT 0,
    current_streak INTEGER NOT NULL DEFAULT 0,
    adopted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_user_habit UNIQUE (user_id, habit_id)
);

CREATE INDEX IF NOT EXISTS idx_user_habits_user_id ON user_habits(user_id);
CREATE INDEX IF NOT EXISTS idx_user_habits_active ON user_habits(id) WHERE active;

-- Append-only habit completion log, at most one row per UTC day
CREATE TABLE IF NOT EXISTS user_habit_completions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    user_habit_id UUID NOT NULL REFERENCES user_habits(id) ON DELETE CASCADE,
    completed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    completed_on DATE NOT NULL DEFAULT (NOW() AT TIME ZONE 'UTC')::date,
    xp_earned INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT uq_completion_per_day UNIQUE (user_habit_id, completed_on)
);

CREATE INDEX IF NOT EXISTS idx_habit_completions_habit ON user_habit_completions(user_habit_id, completed_at DESC);
CREATE INDEX IF NOT EXISTS idx_habit_completions_user ON user_habit_completions(user_id, completed_at DESC);

-- Toolbox catalog
CREATE TABLE IF NOT EXISTS toolbox_library (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category VARCHAR(50) NOT NULL DEFAULT '',
    xp_reward INTEGER NOT NULL DEFAULT 15,
    skill_ids UUID[] NOT NULL DEFAULT '{}',

    CONSTRAINT valid_tool_xp CHECK (xp_reward > 0)
);

-- Tools a user added from the library
CREATE TABLE IF NOT EXISTS user_toolbox_items (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    tool_id UUID NOT NULL REFERENCES toolbox_library(id) ON DELETE CASCADE,
    name VARCHAR(100) NOT NULL,
    xp_reward INTEGER NOT NULL DEFAULT 15,
    usage_count INTEGER NOT NULL DEFAULT 0,
    added_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_user_tool UNIQUE (user_id, tool_id)
);

CREATE INDEX IF NOT EXISTS idx_user_toolbox_user_id ON user_toolbox_items(user_id);

-- Append-only tool usage log
CREATE TABLE IF NOT EXISTS toolbox_usage (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    user_tool_id UUID NOT NULL REFERENCES user_toolbox_items(id) ON DELETE CASCADE,
    used_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    xp_earned INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_toolbox_usage_tool ON toolbox_usage(user_tool_id, used_at DESC);
CREATE INDEX IF NOT EXISTS idx_toolbox_usage_user ON toolbox_usage(user_id, used_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS toolbox_usage;
DROP TABLE IF EXISTS user_toolbox_items;
DROP TABLE IF EXISTS toolbox_library;
DROP TABLE IF EXISTS user_habit_completions;
DROP TABLE IF EXISTS user_habits;
DROP TABLE IF EXISTS habits_library;
`
